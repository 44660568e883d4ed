package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rbright/livetune/internal/store"
)

// Editor owns one document buffer. It is not safe for concurrent use.
type Editor struct {
	store      store.Store
	logger     *slog.Logger
	defaultDoc string

	buffer    string
	canonical string
	state     State
	problem   *MalformedDocumentError
	reply     ReplyMode
}

// New builds an editor over s. An empty defaultDocument selects DefaultDocument.
func New(s store.Store, logger *slog.Logger, defaultDocument string) *Editor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if strings.TrimSpace(defaultDocument) == "" {
		defaultDocument = DefaultDocument
	}
	return &Editor{
		store:      s,
		logger:     logger,
		defaultDoc: defaultDocument,
		buffer:     defaultDocument,
		canonical:  defaultDocument,
		state:      StateValid,
		reply:      ReplyModeStream,
	}
}

// LoadInitial reads the document and reply mode from the store. A missing
// document selects the default one.
func (e *Editor) LoadInitial(ctx context.Context) (View, error) {
	text, ok, err := e.store.Get(ctx, store.KeyDocument)
	if err != nil {
		return e.View(), fmt.Errorf("load document: %w", err)
	}
	if !ok {
		text = e.defaultDoc
	}

	e.buffer = text
	e.canonical = e.defaultDoc
	if err := e.check(text); err == nil {
		e.canonical = text
	} else {
		e.logger.Warn("stored document is malformed", "error", err.Error())
	}

	reply, ok, err := e.store.Get(ctx, store.KeyReplyMode)
	if err != nil {
		return e.View(), fmt.Errorf("load reply mode: %w", err)
	}
	e.reply = ReplyModeStream
	if ok {
		e.reply = storedReplyMode(reply)
	}

	return e.View(), nil
}

// OnRawTextEdit replaces the buffer. Only a parsable buffer is persisted; a
// malformed one is kept and reported through Problem. Derived fields follow
// the buffer only once the store accepted it.
func (e *Editor) OnRawTextEdit(ctx context.Context, text string) error {
	e.buffer = text
	if err := e.check(text); err != nil {
		e.logger.Debug("document edit does not parse", "error", err.Error())
		return nil
	}

	if err := e.store.Set(ctx, store.KeyDocument, text); err != nil {
		return fmt.Errorf("persist document: %w", err)
	}
	e.canonical = text
	return nil
}

// OnConversationModeChange writes mode into the current buffer.
func (e *Editor) OnConversationModeChange(ctx context.Context, mode ConversationMode) error {
	mode, err := ParseConversationMode(string(mode))
	if err != nil {
		return err
	}

	if err := Validate(e.buffer); err != nil {
		e.logger.Error("conversation mode not written", "mode", string(mode), "error", err.Error())
		return fmt.Errorf("%w: %w", ErrStructuredWriteOnInvalidDocument, err)
	}

	updated, err := setPath(e.buffer, ModePath, string(mode))
	if errors.Is(err, errNotObject) {
		e.logger.Error("conversation mode not written", "mode", string(mode), "error", err.Error())
		return fmt.Errorf("%w: %w", ErrStructuredWriteOnInvalidDocument, err)
	}
	if err != nil {
		return err
	}

	e.buffer = updated
	e.state = StateValid
	e.problem = nil
	if err := e.store.Set(ctx, store.KeyDocument, updated); err != nil {
		return fmt.Errorf("persist document: %w", err)
	}
	e.canonical = updated
	return nil
}

// OnReplyModeChange stores mode regardless of document validity.
func (e *Editor) OnReplyModeChange(ctx context.Context, mode ReplyMode) error {
	mode, err := ParseReplyMode(string(mode))
	if err != nil {
		return err
	}
	if err := e.store.Set(ctx, store.KeyReplyMode, string(mode)); err != nil {
		return fmt.Errorf("persist reply mode: %w", err)
	}
	e.reply = mode
	return nil
}

func (e *Editor) check(text string) error {
	err := Validate(text)
	if err == nil {
		e.state = StateValid
		e.problem = nil
		return nil
	}
	e.state = StateInvalid
	var malformed *MalformedDocumentError
	if errors.As(err, &malformed) {
		e.problem = malformed
	}
	return err
}

func (e *Editor) Text() string {
	return e.buffer
}

func (e *Editor) State() State {
	return e.state
}

// Problem returns the parse failure of the current buffer, or nil.
func (e *Editor) Problem() error {
	if e.problem == nil {
		return nil
	}
	return e.problem
}

// ConversationMode reads the mode from the last valid document.
func (e *Editor) ConversationMode() ConversationMode {
	return readMode(e.canonical)
}

func (e *Editor) ReplyMode() ReplyMode {
	return e.reply
}

func (e *Editor) View() View {
	v := View{
		Text:             e.buffer,
		State:            e.state,
		ConversationMode: e.ConversationMode(),
		ReplyMode:        e.reply,
	}
	if e.problem != nil {
		v.Problem = e.problem.Error()
	}
	return v
}
