package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"vocab-mocktest-service/internal/analytics"
	"vocab-mocktest-service/internal/app"
	"vocab-mocktest-service/internal/bank"
	"vocab-mocktest-service/internal/domain"
	"vocab-mocktest-service/internal/state"
)

// WSHandler exposes a test session over a websocket: the client drives the
// question lifecycle with small typed messages and receives state snapshots
// back. One connection maps to one scope (profile + source + set).
type WSHandler struct {
	service       *app.TestService
	defaultSource string
	upgrader      websocket.Upgrader
}

func NewWSHandler(service *app.TestService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// WithDefaultSource sets the source used when a client omits sourceId.
func (h *WSHandler) WithDefaultSource(source string) *WSHandler {
	h.defaultSource = source
	return h
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type indexPayload struct {
	Index int `json:"index"`
}

type answerPayload struct {
	Index  int     `json:"index"`
	Choice *int    `json:"choice,omitempty"`
	Text   *string `json:"text,omitempty"`
}

type identifyPayload struct {
	Name string `json:"name"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// statePayload is the per-action snapshot pushed back to the client.
type statePayload struct {
	CurrentIndex int             `json:"currentIndex"`
	Status       domain.Status   `json:"status"`
	Statistics   app.Statistics  `json:"statistics"`
	TimerMode    state.TimerMode `json:"timerMode"`
	TimerSeconds int             `json:"timerSeconds"`
	Submitted    bool            `json:"submitted"`
}

// questionPayload carries one question for display, with the group's shared
// context resolved for it.
type questionPayload struct {
	Index         int             `json:"index"`
	Question      domain.Question `json:"question"`
	SharedContext *string         `json:"sharedContext"`
	Answer        *domain.Answer  `json:"answer"`
}

type resultPayload struct {
	Result   domain.Result            `json:"result"`
	Summary  analytics.AttemptSummary `json:"summary"`
	Insights []string                 `json:"insights"`
}

// historyPayload carries the profile's past attempts on the connected source,
// with aggregate and per-tag views.
type historyPayload struct {
	Attempts    []domain.AttemptRecord `json:"attempts"`
	Summary     *analytics.TypeSummary `json:"summary"`
	TagInsights []analytics.TagInsight `json:"tagInsights"`
}

// ServeWS upgrades the request and wires the connection into the test session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	profile := r.URL.Query().Get("profileId")
	source := r.URL.Query().Get("sourceId")
	setRaw := r.URL.Query().Get("setId")
	if source == "" {
		source = h.defaultSource
	}
	if profile == "" || source == "" || setRaw == "" {
		http.Error(w, "missing profileId, sourceId, or setId", http.StatusBadRequest)
		return
	}
	setID, err := strconv.Atoi(setRaw)
	if err != nil {
		http.Error(w, "setId must be an integer", http.StatusBadRequest)
		return
	}
	scope := state.Scope{Profile: profile, Source: source, SetID: setID}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, err := h.service.Start(r.Context(), scope)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.Close(scope)

	ctx := r.Context()
	h.sendState(conn, ctx, session)
	h.sendQuestion(conn, session, session.CurrentIndex())

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "visit", "answer", "clear", "review":
			if session.Submitted() {
				sendError(conn, domain.ErrSubmitted.Error())
				continue
			}
		}
		switch inbound.Type {
		case "visit":
			var p indexPayload
			if !decode(conn, inbound.Payload, &p) {
				continue
			}
			session.Visit(ctx, p.Index)
			h.sendQuestion(conn, session, session.CurrentIndex())
			h.sendState(conn, ctx, session)
		case "answer":
			var p answerPayload
			if !decode(conn, inbound.Payload, &p) {
				continue
			}
			switch {
			case p.Choice != nil:
				session.SetAnswer(ctx, p.Index, domain.ChoiceAnswer(*p.Choice))
			case p.Text != nil:
				session.SetAnswer(ctx, p.Index, domain.TextAnswer(*p.Text))
			default:
				sendError(conn, "answer payload needs a choice or text")
				continue
			}
			h.sendState(conn, ctx, session)
		case "clear":
			var p indexPayload
			if !decode(conn, inbound.Payload, &p) {
				continue
			}
			session.ClearAnswer(ctx, p.Index)
			h.sendState(conn, ctx, session)
		case "review":
			var p indexPayload
			if !decode(conn, inbound.Payload, &p) {
				continue
			}
			session.ToggleReview(ctx, p.Index)
			h.sendState(conn, ctx, session)
		case "submit":
			result, err := h.service.Submit(ctx, scope)
			if err != nil {
				sendError(conn, err.Error())
				continue
			}
			record := result.Record(scope.SetID, time.Now())
			summary := analytics.SummarizeAttempt(record)
			_ = conn.WriteJSON(outboundMessage[resultPayload]{Type: "result", Payload: resultPayload{
				Result:   result,
				Summary:  summary,
				Insights: analytics.BuildInsights(record, summary),
			}})
			h.sendState(conn, ctx, session)
		case "identify":
			var p identifyPayload
			if !decode(conn, inbound.Payload, &p) {
				continue
			}
			h.service.SetDisplayName(ctx, scope.Profile, p.Name)
		case "history":
			_ = conn.WriteJSON(outboundMessage[historyPayload]{Type: "history", Payload: historyPayload{
				Attempts:    h.service.Attempts(ctx, scope.Profile, scope.Source, scope.SetID),
				Summary:     h.service.SourceSummary(ctx, scope.Profile, scope.Source),
				TagInsights: h.service.TagInsights(ctx, scope.Profile, scope.Source),
			}})
		case "reset":
			if err := h.service.Reset(ctx, scope); err != nil {
				sendError(conn, err.Error())
				continue
			}
			h.sendState(conn, ctx, session)
			h.sendQuestion(conn, session, 0)
		default:
			sendError(conn, "unsupported message type")
		}
	}
}

func (h *WSHandler) sendState(conn *websocket.Conn, ctx context.Context, session *app.Session) {
	mode, seconds := session.Clock(ctx)
	current := session.CurrentIndex()
	_ = conn.WriteJSON(outboundMessage[statePayload]{Type: "state", Payload: statePayload{
		CurrentIndex: current,
		Status:       session.Status(current),
		Statistics:   session.Statistics(),
		TimerMode:    mode,
		TimerSeconds: seconds,
		Submitted:    session.Submitted(),
	}})
}

func (h *WSHandler) sendQuestion(conn *websocket.Conn, session *app.Session, index int) {
	questions := session.Questions()
	if index < 0 || index >= len(questions) {
		return
	}
	q := questions[index]
	var ans *domain.Answer
	if a, ok := session.Answer(index); ok {
		ans = &a
	}
	_ = conn.WriteJSON(outboundMessage[questionPayload]{Type: "question", Payload: questionPayload{
		Index:         index,
		Question:      q,
		SharedContext: bank.ResolveSharedContext(q, questions),
		Answer:        ans,
	}})
}

func sendError(conn *websocket.Conn, message string) {
	_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: message}})
}

func decode(conn *websocket.Conn, raw json.RawMessage, out any) bool {
	if err := json.Unmarshal(raw, out); err != nil {
		sendError(conn, "invalid payload")
		return false
	}
	return true
}
