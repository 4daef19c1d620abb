package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pledgeboard/internal/app"
	"pledgeboard/internal/auth"
	"pledgeboard/internal/domain"
)

// WSHandler runs the dashboard live feed and the quiz over one websocket
// per client.
type WSHandler struct {
	feed     *app.FeedService
	quizzes  app.QuizRepository
	stats    *app.StatsService
	identity auth.Identity
	log      *zap.Logger
	quizID   string
	upgrader websocket.Upgrader
}

func NewWSHandler(feed *app.FeedService, quizzes app.QuizRepository, stats *app.StatsService,
	identity auth.Identity, log *zap.Logger, quizID string) *WSHandler {
	return &WSHandler{
		feed:     feed,
		quizzes:  quizzes,
		stats:    stats,
		identity: identity,
		log:      log,
		quizID:   quizID,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type startPayload struct {
	Department string `json:"department"`
	FullName   string `json:"fullName"`
}

type answerPayload struct {
	Option int `json:"option"`
}

type questionPayload struct {
	Index   int      `json:"index"`
	Total   int      `json:"total"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Score   int      `json:"score"`
}

type answerResultPayload struct {
	app.Outcome
	Explanation string `json:"explanation,omitempty"`
}

type submitPayload struct {
	Score    int    `json:"score"`
	MaxScore int    `json:"maxScore"`
	Message  string `json:"message,omitempty"`
}

// ServeWS authenticates the session, subscribes the client to dashboard
// snapshots, and drives the quiz state machine from inbound messages.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			token = c.Value
		}
	}
	user, err := auth.ResolveUser(r.Context(), h.identity, token, authResolveTimeout)
	if err != nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel, err := h.feed.Subscribe(r.Context(), user.ID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "feed unavailable"}})
		return
	}
	// The subscription is torn down with the connection; it never outlives
	// the view it feeds.
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "snapshot", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	session := &wsSession{handler: h, user: user, send: send}
	session.readLoop(r.Context(), conn)

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// wsSession holds the per-connection quiz state.
type wsSession struct {
	handler *WSHandler
	user    auth.User
	send    chan outboundMessage[any]

	quiz   domain.Quiz
	runner *app.QuizRunner
}

func (s *wsSession) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "startQuiz":
			s.handleStart(ctx, inbound.Payload)
		case "answer":
			s.handleAnswer(inbound.Payload)
		case "skip":
			s.handleSkip()
		case "next":
			s.handleNext(ctx)
		case "retry":
			s.handleSubmit(ctx)
		case "retake":
			s.handleRetake()
		case "volunteer":
			s.handleVolunteer(ctx, inbound.Payload)
		default:
			s.sendError("unsupported message type")
		}
	}
}

func (s *wsSession) handleStart(ctx context.Context, raw json.RawMessage) {
	var payload startPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.sendError("invalid start payload")
		return
	}

	if s.runner == nil || s.runner.Phase() != app.PhaseAwaitingDepartment {
		quiz, err := s.handler.quizzes.GetQuiz(ctx, s.handler.quizID)
		if err != nil {
			s.handler.log.Error("quiz load", zap.Error(err))
			s.sendError("quiz unavailable")
			return
		}
		s.quiz = quiz
		s.runner = app.NewQuizRunner(quiz, s.handler.feed, s.user.ID)
	}

	name := payload.FullName
	if name == "" {
		name = s.user.DisplayName
	}
	question, err := s.runner.Start(payload.Department, name)
	if err != nil {
		s.sendError(err.Error())
		return
	}
	s.sendQuestion(question, 0)
}

func (s *wsSession) handleAnswer(raw json.RawMessage) {
	if s.runner == nil {
		s.sendError("quiz not started")
		return
	}
	var payload answerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.sendError("invalid answer payload")
		return
	}
	out, err := s.runner.Answer(payload.Option)
	s.sendOutcome(out, err)
}

func (s *wsSession) handleSkip() {
	if s.runner == nil {
		s.sendError("quiz not started")
		return
	}
	out, err := s.runner.Skip()
	s.sendOutcome(out, err)
}

func (s *wsSession) handleNext(ctx context.Context) {
	if s.runner == nil {
		s.sendError("quiz not started")
		return
	}
	question, done, err := s.runner.Advance()
	if err != nil {
		s.sendError(err.Error())
		return
	}
	if done {
		s.handleSubmit(ctx)
		return
	}
	_, index, _ := s.runner.Current()
	s.sendQuestion(question, index)
}

func (s *wsSession) handleSubmit(ctx context.Context) {
	if s.runner == nil {
		s.sendError("quiz not started")
		return
	}
	record, err := s.runner.Submit(ctx)
	score := s.runner.Score()
	switch {
	case err == nil:
		s.handler.stats.NoteSubmission(ctx, record)
		s.send <- outboundMessage[any]{Type: "submitted", Payload: submitPayload{
			Score:    score,
			MaxScore: s.quiz.MaxScore(),
		}}
	case errors.Is(err, domain.ErrSubmitInFlight), errors.Is(err, domain.ErrAlreadySubmitted):
		// Double-click or stale retry: reject without a second persist.
		s.sendError(err.Error())
	default:
		s.handler.log.Warn("pledge persist failed", zap.Error(err))
		s.send <- outboundMessage[any]{Type: "submitFailed", Payload: submitPayload{
			Score:    score,
			MaxScore: s.quiz.MaxScore(),
			Message:  "Could not save your result. Try again.",
		}}
	}
}

func (s *wsSession) handleRetake() {
	if s.runner == nil {
		s.sendError("quiz not started")
		return
	}
	s.runner.Retake()
	s.send <- outboundMessage[any]{Type: "phase", Payload: app.PhaseAwaitingDepartment.String()}
}

func (s *wsSession) handleVolunteer(ctx context.Context, raw json.RawMessage) {
	var payload startPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			s.sendError("invalid volunteer payload")
			return
		}
	}
	name := payload.FullName
	if name == "" {
		name = s.user.DisplayName
	}
	record, err := s.handler.feed.Volunteer(ctx, s.user.ID, name, payload.Department)
	if err != nil {
		s.handler.log.Warn("volunteer persist failed", zap.Error(err))
		s.sendError("Could not save your pledge. Try again.")
		return
	}
	s.handler.stats.NoteSubmission(ctx, record)
	s.send <- outboundMessage[any]{Type: "volunteered", Payload: record}
}

func (s *wsSession) sendQuestion(q domain.Question, index int) {
	s.send <- outboundMessage[any]{Type: "question", Payload: questionPayload{
		Index:   index,
		Total:   len(s.quiz.Questions),
		Prompt:  q.Prompt,
		Options: q.Options,
		Score:   s.runner.Score(),
	}}
}

func (s *wsSession) sendOutcome(out app.Outcome, err error) {
	if err != nil {
		s.sendError(err.Error())
		return
	}
	question, _, ok := s.runner.Current()
	payload := answerResultPayload{Outcome: out}
	if ok {
		payload.Explanation = question.Explanation
	}
	s.send <- outboundMessage[any]{Type: "answerResult", Payload: payload}
}

func (s *wsSession) sendError(message string) {
	s.send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}
