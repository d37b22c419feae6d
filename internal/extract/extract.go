// Package extract drives the phone-reveal interaction on a loaded profile
// page and collects up to two normalized numbers per page.
package extract

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/phonereveal/internal/browser"
	"github.com/go-scripts/phonereveal/internal/phone"
)

// Selectors for the profile page's reveal widgets. One page may host several
// independent containers, each opening its own modal.
const (
	containerSelector = `[data-id="gdpr-show-number-block"]`
	numberSelector    = `span[data-id="shrinked-number"]`
	revealSelector    = `[data-id="show-phone-number-modal"]`

	// fallbackModalSelector matches any visible phone modal when the
	// button's data-target cannot be parsed.
	fallbackModalSelector = `.modal[data-id*="phone"]`
)

// modalIDPattern pulls the modal's data-id out of a data-target value like
// `[data-id='address-469542-3310770736-2-phone']`.
var modalIDPattern = regexp.MustCompile(`data-id='([^']+)`)

var closeControls = []string{`[data-dismiss="modal"]`, `.close`, `button[aria-label="Close"]`}

// maxPhones caps how many numbers a single page contributes.
const maxPhones = 2

// Delays are the pacing pauses inserted between page interactions. Zero
// values skip the pause, which tests rely on.
type Delays struct {
	SettleMin    time.Duration // after page readiness
	SettleMax    time.Duration
	Reveal       time.Duration // after clicking a reveal button
	ModalSettle  time.Duration // after the modal appears
	Dismiss      time.Duration // after closing a modal
	ContainerMin time.Duration // between containers
	ContainerMax time.Duration
}

// DefaultDelays mirrors the pacing the target site tolerates.
func DefaultDelays() Delays {
	return Delays{
		SettleMin:    2 * time.Second,
		SettleMax:    4 * time.Second,
		Reveal:       3 * time.Second,
		ModalSettle:  time.Second,
		Dismiss:      2 * time.Second,
		ContainerMin: 2 * time.Second,
		ContainerMax: 3 * time.Second,
	}
}

// Extractor collects phone numbers from profile pages through a browser
// session it does not own.
type Extractor struct {
	session browser.Session
	policy  phone.Policy
	chain   []phone.Strategy
	log     *log.Logger

	Delays           Delays
	ReadyTimeout     time.Duration
	ContainerTimeout time.Duration
	ModalTimeout     time.Duration
}

// New returns an extractor with production pacing and timeouts.
func New(session browser.Session, policy phone.Policy, logger *log.Logger) *Extractor {
	return &Extractor{
		session:          session,
		policy:           policy,
		chain:            phone.Chain(policy),
		log:              logger,
		Delays:           DefaultDelays(),
		ReadyTimeout:     10 * time.Second,
		ContainerTimeout: 5 * time.Second,
		ModalTimeout:     10 * time.Second,
	}
}

// ExtractPhones navigates to pageURL and returns up to two deduplicated
// normalized numbers in discovery order. Container-level failures are logged
// and skipped; only session-level failures surface as an error, and those
// abort extraction for this page alone.
func (e *Extractor) ExtractPhones(ctx context.Context, pageURL string) ([]string, error) {
	if err := e.session.Navigate(ctx, pageURL); err != nil {
		return nil, fmt.Errorf("navigating to %s: %w", pageURL, err)
	}
	if err := e.session.WaitReady(ctx, "body", e.ReadyTimeout); err != nil {
		return nil, fmt.Errorf("waiting for page load: %w", err)
	}
	e.pause(ctx, e.Delays.SettleMin, e.Delays.SettleMax)

	if err := e.session.WaitReady(ctx, containerSelector, e.ContainerTimeout); err != nil {
		e.log.Warn("no phone containers on page", "url", pageURL)
		return nil, nil
	}
	containers, err := e.session.Query(ctx, containerSelector)
	if err != nil {
		return nil, fmt.Errorf("listing phone containers: %w", err)
	}
	e.log.Info("found phone containers", "count", len(containers))

	acc := &accumulator{seen: make(map[string]bool)}
	for i, container := range containers {
		if acc.full() {
			break
		}
		e.collect(ctx, container, i+1, acc)
		e.pause(ctx, e.Delays.ContainerMin, e.Delays.ContainerMax)
	}
	return acc.values, nil
}

// collect inspects one reveal container, triggering the modal when the
// visible number is masked. Any failure inside the container is logged and
// yields nothing for it.
func (e *Extractor) collect(ctx context.Context, container browser.Element, index int, acc *accumulator) {
	visible, err := container.Text(ctx, numberSelector)
	if err != nil {
		e.log.Warn("no number text in container", "container", index, "err", err)
		return
	}

	if !phone.Masked(visible) {
		if n, ok := e.policy.Normalize(visible); ok && acc.add(n) {
			e.log.Info("number already visible", "container", index, "phone", n)
		}
		return
	}

	e.log.Info("masked number, revealing", "container", index, "visible", visible)

	target, err := container.Attribute(ctx, revealSelector, "data-target")
	if err != nil && !errors.Is(err, browser.ErrNotFound) {
		e.log.Warn("no reveal button in container", "container", index, "err", err)
		return
	}
	if err := container.Click(ctx, revealSelector); err != nil {
		e.log.Warn("reveal click failed", "container", index, "err", err)
		return
	}
	e.pause(ctx, e.Delays.Reveal, e.Delays.Reveal)

	modalSel := modalSelector(target)
	if err := e.session.WaitVisible(ctx, modalSel, e.ModalTimeout); err != nil {
		e.log.Warn("modal did not appear", "container", index, "selector", modalSel)
		return
	}
	e.pause(ctx, e.Delays.ModalSettle, e.Delays.ModalSettle)

	html, err := e.session.OuterHTML(ctx, modalSel)
	if err != nil {
		e.log.Warn("could not read modal", "container", index, "err", err)
		e.dismiss(ctx, modalSel, index)
		return
	}

	if n, strategy, ok := e.firstNewNumber(html, acc); ok {
		acc.add(n)
		e.log.Info("extracted phone", "container", index, "strategy", strategy, "phone", n)
	}

	e.dismiss(ctx, modalSel, index)
	e.pause(ctx, e.Delays.Dismiss, e.Delays.Dismiss)
}

// firstNewNumber runs the strategy chain over the modal markup and returns
// the first normalized number not already accumulated.
func (e *Extractor) firstNewNumber(html string, acc *accumulator) (string, string, bool) {
	doc, err := phone.ParsePanel(html)
	if err != nil {
		e.log.Warn("unparseable modal markup", "err", err)
		return "", "", false
	}
	for _, strategy := range e.chain {
		for _, raw := range strategy.Extract(doc) {
			if n, ok := e.policy.Normalize(raw); ok && !acc.seen[n] {
				return n, strategy.Name, true
			}
		}
	}
	return "", "", false
}

// dismiss closes the modal via its close control, falling back to hiding it
// and stripping any backdrop so later containers stay clickable.
func (e *Extractor) dismiss(ctx context.Context, modalSel string, index int) {
	if err := e.session.Click(ctx, closeSelector(modalSel)); err == nil {
		e.log.Debug("modal closed", "container", index)
		return
	}
	if err := e.session.Run(ctx, forceHideScript(modalSel)); err != nil {
		e.log.Warn("could not hide modal", "container", index, "err", err)
	}
}

// modalSelector resolves the reveal button's data-target to the selector of
// its own modal, or the generic phone-modal selector when unparseable.
func modalSelector(target string) string {
	if m := modalIDPattern.FindStringSubmatch(target); m != nil {
		return fmt.Sprintf(`[data-id=%q]`, m[1])
	}
	return fallbackModalSelector
}

func closeSelector(modalSel string) string {
	parts := make([]string, len(closeControls))
	for i, control := range closeControls {
		parts[i] = modalSel + " " + control
	}
	return strings.Join(parts, ", ")
}

func forceHideScript(modalSel string) string {
	return fmt.Sprintf(`(() => {
		const modal = document.querySelector(%q);
		if (modal) modal.style.display = 'none';
		document.querySelectorAll('.modal-backdrop').forEach(b => b.remove());
	})()`, modalSel)
}

func (e *Extractor) pause(ctx context.Context, min, max time.Duration) {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// accumulator keeps discovery-ordered unique numbers, capped at maxPhones.
type accumulator struct {
	values []string
	seen   map[string]bool
}

func (a *accumulator) full() bool { return len(a.values) >= maxPhones }

func (a *accumulator) add(n string) bool {
	if a.full() || a.seen[n] {
		return false
	}
	a.seen[n] = true
	a.values = append(a.values, n)
	return true
}
