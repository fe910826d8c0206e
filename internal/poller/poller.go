// Package poller waits for a remote session to reach a terminal state and
// extracts its JSON result, either inline from structured_output or from a
// file attachment linked in one of the last messages.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/devinctl/pkg/devin"
)

// Outcome classifies how a wait ended.
type Outcome int

const (
	// OutcomeResult means a result document was obtained.
	OutcomeResult Outcome = iota
	// OutcomeNoResult means the session is terminal but produced nothing
	// usable.
	OutcomeNoResult
	// OutcomeTimeout means the maximum wait elapsed before a terminal state.
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResult:
		return "result"
	case OutcomeNoResult:
		return "no_result"
	case OutcomeTimeout:
		return "timeout"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Source records where a result came from.
type Source string

const (
	SourceInline     Source = "structured_output"
	SourceAttachment Source = "attachment"
)

// DefaultMessageWindow is how many trailing messages are searched for an
// attachment link.
const DefaultMessageWindow = 5

// Fetcher is the read-only slice of the API the poller needs.
type Fetcher interface {
	GetSession(ctx context.Context, sessionID string) (*devin.Session, error)
	GetAttachment(ctx context.Context, ref devin.AttachmentRef) (string, error)
}

// Clock abstracts time so tests can run without sleeping.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Poll describes one observation, passed to Options.OnPoll.
type Poll struct {
	N       int
	Status  devin.Status
	Elapsed time.Duration
}

// Options configures a Poller.
type Options struct {
	MaxWait  time.Duration
	Interval time.Duration
	// Window is the number of trailing messages searched for an attachment.
	// Zero means DefaultMessageWindow.
	Window int
	// Attachments recognizes attachment links in message text.
	Attachments *devin.AttachmentMatcher
	Clock       Clock
	OnPoll      func(Poll)
}

// Result is the outcome of a wait.
type Result struct {
	SessionID  string
	Outcome    Outcome
	Status     devin.Status
	Source     Source
	Attachment *devin.AttachmentRef
	Document   devin.Document
	Polls      int
	Elapsed    time.Duration
}

// Poller waits for sessions. It never modifies a session.
type Poller struct {
	fetcher Fetcher
	opts    Options
}

// New returns a Poller reading through f.
func New(f Fetcher, opts Options) *Poller {
	if opts.Window <= 0 {
		opts.Window = DefaultMessageWindow
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Attachments == nil {
		opts.Attachments = devin.NewAttachmentMatcher(devin.DefaultAppURL)
	}
	return &Poller{fetcher: f, opts: opts}
}

// Wait polls sessionID until it is terminal or MaxWait has elapsed. Errors
// from the API are returned immediately without retry.
func (p *Poller) Wait(ctx context.Context, sessionID string) (*Result, error) {
	clock := p.opts.Clock
	start := clock.Now()
	res := &Result{SessionID: sessionID}

	for {
		elapsed := clock.Now().Sub(start)
		if elapsed > p.opts.MaxWait {
			res.Outcome = OutcomeTimeout
			res.Elapsed = elapsed
			slog.Debug("poll timed out", "session", sessionID, "polls", res.Polls, "elapsed", elapsed)
			return res, nil
		}

		session, err := p.fetcher.GetSession(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("get session %s: %w", sessionID, err)
		}
		res.Polls++
		res.Status = session.StatusEnum
		slog.Debug("polled session", "session", sessionID, "poll", res.Polls, "status", session.StatusEnum, "elapsed", elapsed)
		if p.opts.OnPoll != nil {
			p.opts.OnPoll(Poll{N: res.Polls, Status: session.StatusEnum, Elapsed: elapsed})
		}

		if !session.StatusEnum.IsTerminal() {
			if err := clock.Sleep(ctx, p.opts.Interval); err != nil {
				return nil, err
			}
			continue
		}

		res.Elapsed = clock.Now().Sub(start)
		if err := p.extract(ctx, session, res); err != nil {
			return nil, err
		}
		return res, nil
	}
}

// Read fetches sessionID once and extracts whatever result it already has,
// whatever its status. Unlike Wait it also looks at the messages of an
// expired session.
func (p *Poller) Read(ctx context.Context, sessionID string) (*Result, error) {
	session, err := p.fetcher.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	res := &Result{SessionID: sessionID, Status: session.StatusEnum, Polls: 1}
	if err := p.resolve(ctx, session, res, true); err != nil {
		return nil, err
	}
	return res, nil
}

// extract fills res from a terminal session.
func (p *Poller) extract(ctx context.Context, session *devin.Session, res *Result) error {
	return p.resolve(ctx, session, res, session.StatusEnum != devin.StatusExpired)
}

// resolve prefers inline output over any attachment; among attachments the
// most recent message wins.
func (p *Poller) resolve(ctx context.Context, session *devin.Session, res *Result, scanMessages bool) error {
	if !session.StructuredOutput.IsEmpty() {
		res.Outcome = OutcomeResult
		res.Source = SourceInline
		res.Document = session.StructuredOutput
		return nil
	}

	if !scanMessages {
		res.Outcome = OutcomeNoResult
		return nil
	}

	ref, ok := p.findAttachment(session)
	if !ok {
		res.Outcome = OutcomeNoResult
		return nil
	}

	slog.Debug("fetching attachment", "session", session.SessionID, "attachment", ref.String())
	text, err := p.fetcher.GetAttachment(ctx, ref)
	if err != nil {
		return fmt.Errorf("get attachment %s: %w", ref, err)
	}
	doc, err := devin.ParseDocument([]byte(text))
	if err != nil {
		slog.Debug("attachment is not JSON, keeping raw content", "attachment", ref.String())
		doc = devin.RawContentDocument(text)
	}
	res.Outcome = OutcomeResult
	res.Source = SourceAttachment
	res.Attachment = &ref
	res.Document = doc
	return nil
}

func (p *Poller) findAttachment(session *devin.Session) (devin.AttachmentRef, bool) {
	msgs := session.LastMessages(p.opts.Window)
	for i := len(msgs) - 1; i >= 0; i-- {
		if ref, ok := p.opts.Attachments.Find(msgs[i].Message); ok {
			return ref, true
		}
	}
	return devin.AttachmentRef{}, false
}
