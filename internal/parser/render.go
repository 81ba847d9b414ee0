package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fix-logviewer/backend/internal/models"
	"github.com/fix-logviewer/backend/internal/observability"
	"github.com/fix-logviewer/backend/internal/schema"
)

const indentWidth = 2

// Renderer turns log lines into indented FIX field trees.
type Renderer struct {
	registry *Registry
	logger   zerolog.Logger
}

func NewRenderer(registry *Registry, logger zerolog.Logger) *Renderer {
	return &Renderer{
		registry: registry,
		logger:   logger.With().Str("component", "fix_renderer").Logger(),
	}
}

// Registry returns the schema registry used by the renderer.
func (r *Renderer) Registry() *Registry {
	return r.registry
}

// Render returns the rendered tree of the FIX message in line, one string per
// output line. Lines without a message, or that cannot be rendered, yield an
// empty slice; the reason is logged.
func (r *Renderer) Render(line string) []string {
	res, err := r.RenderResult(line)
	if err != nil {
		return []string{}
	}
	return res.Lines
}

// RenderFields is Render in structured form.
func (r *Renderer) RenderFields(line string) ([]models.RenderedField, error) {
	res, err := r.RenderResult(line)
	if err != nil {
		return nil, err
	}
	return res.Fields, nil
}

// RenderResult renders line and reports why it could not be rendered. Every
// error is also logged and counted.
func (r *Renderer) RenderResult(line string) (*models.RenderResult, error) {
	start := time.Now()
	res, err := r.render(line)
	r.record(line, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Renderer) render(line string) (res *models.RenderResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = fmt.Errorf("%w: %v", ErrRenderFailure, p)
		}
	}()

	tokens, err := Extract(line)
	if err != nil {
		return nil, err
	}
	s, key, err := r.registry.Resolve(tokens)
	if err != nil {
		return nil, err
	}
	res, err = RenderTokens(s, tokens)
	if err != nil {
		return nil, err
	}
	res.Version = key
	return res, nil
}

func (r *Renderer) record(line string, err error, took time.Duration) {
	switch {
	case err == nil:
		observability.RecordRender(observability.OutcomeRendered, took)
	case errors.Is(err, ErrNoEmbeddedMessage):
		observability.RecordRender(observability.OutcomeNoMessage, took)
		r.logger.Debug().Msg("No FIX message in line")
	case errors.Is(err, ErrUnknownMessageType):
		observability.RecordRender(observability.OutcomeUnknownMsgType, took)
		r.logger.Warn().Err(err).Msg("Could not find FIX message schema for the message type")
	case errors.Is(err, ErrSchemaUnavailable):
		observability.RecordRender(observability.OutcomeNoSchema, took)
		r.logger.Warn().Err(err).Msg("No FIX schema for message")
	default:
		observability.RecordRender(observability.OutcomeFailed, took)
		r.logger.Error().Err(err).Str("line", line).Msg("Could not process the FIX message")
	}
}

// RenderTokens renders tokens against s. Tokens that fit the message tree are
// emitted in input order with group boundaries marked; anything left after
// the tree walk stops is listed unindented with the unmatched marker.
func RenderTokens(s *schema.Schema, tokens []models.FieldToken) (*models.RenderResult, error) {
	msgType, ok := FieldValue(tokens, TagMsgType)
	if !ok {
		return nil, fmt.Errorf("%w: message has no MsgType", ErrUnknownMessageType)
	}
	root, ok := s.Message(msgType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessageType, msgType)
	}

	w := &treeWriter{dict: s.Dictionary(), tokens: tokens}
	end := w.level(root, 0, 0)
	for ; end < len(tokens); end++ {
		w.emit(0, models.MarkerUnmatched, tokens[end])
	}

	lines := make([]string, len(w.fields))
	for i, f := range w.fields {
		lines[i] = f.Text
	}
	return &models.RenderResult{
		MsgType:     msgType,
		MessageName: root.Name(),
		Fields:      w.fields,
		Lines:       lines,
	}, nil
}

type treeWriter struct {
	dict   *schema.Dictionary
	tokens []models.FieldToken
	fields []models.RenderedField
}

// level consumes tokens from pos for as long as they are children of node
// and returns the position of the first token it did not consume. The first
// token seen at a level starts a group instance, and so does every later
// token with the same tag.
func (w *treeWriter) level(node *schema.Node, depth, pos int) int {
	if pos >= len(w.tokens) {
		return pos
	}
	groupStart := w.tokens[pos].Tag
	first := true
	for pos < len(w.tokens) {
		tok := w.tokens[pos]
		child, ok := node.Child(tok.Tag)
		if !ok {
			return pos
		}
		marker := models.MarkerContinuation
		if first || tok.Tag == groupStart {
			marker = models.MarkerBranch
		}
		first = false
		w.emit(depth, marker, tok)
		pos++
		if child.HasChildren() {
			pos = w.level(child, depth+1, pos)
		}
	}
	return pos
}

func (w *treeWriter) emit(depth int, marker rune, tok models.FieldToken) {
	name, ok := w.dict.FieldName(tok.Tag)
	if !ok {
		name = strconv.Itoa(tok.Tag)
	}
	desc, _ := w.dict.EnumDescription(tok.Tag, tok.Value)

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", depth*indentWidth))
	b.WriteRune(marker)
	b.WriteString("--")
	b.WriteString(name)
	b.WriteByte('[')
	b.WriteString(strconv.Itoa(tok.Tag))
	b.WriteString("] = ")
	if desc != "" {
		b.WriteString(desc)
		b.WriteByte('[')
		b.WriteString(tok.Value)
		b.WriteByte(']')
	} else {
		b.WriteString(tok.Value)
	}

	w.fields = append(w.fields, models.RenderedField{
		Depth:       depth,
		Marker:      string(marker),
		Tag:         tok.Tag,
		Name:        name,
		Value:       tok.Value,
		Description: desc,
		Text:        b.String(),
	})
}
