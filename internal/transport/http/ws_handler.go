package http

import (
	"encoding/json"
	"log"
	"net/http"

	"cogscreen-service/internal/domain"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type questionPayload struct {
	Question domain.Question `json:"question"`
	Answered int             `json:"answered"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// outbox serializes writes to one connection through a single writer goroutine.
type outbox struct {
	send chan outboundMessage[any]
	done chan struct{}
}

func newOutbox(write func(any) error) *outbox {
	o := &outbox{send: make(chan outboundMessage[any], 16), done: make(chan struct{})}
	go func() {
		defer close(o.done)
		for msg := range o.send {
			if err := write(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()
	return o
}

// push queues msg. It reports false once the writer has stopped, so a dead
// connection never blocks the caller on a full buffer.
func (o *outbox) push(msg outboundMessage[any]) bool {
	select {
	case <-o.done:
		return false
	default:
	}
	select {
	case o.send <- msg:
		return true
	case <-o.done:
		return false
	}
}

// close flushes queued messages and waits for the writer.
func (o *outbox) close() {
	close(o.send)
	<-o.done
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

// ServeChat runs one patient's assessment over a websocket. It resumes from
// stored progress, pushes a question, and replies to each answer with an
// answerResult followed by the next question or the final result.
func (s *Server) ServeChat(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	ctx := r.Context()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	history, err := s.assessment.Progress(ctx, id.UserID)
	if err != nil {
		log.Printf("load progress for %s: %v", id.UserID, err)
		history = []domain.AnsweredItem{}
	}

	out := newOutbox(func(v any) error { return conn.WriteJSON(v) })
	defer out.close()
	push := out.push

	var pending *domain.Question
	// advance pushes the next question or, once the assessment is complete,
	// finishes it. It reports whether the conversation is over.
	advance := func() bool {
		q, done, err := s.assessment.Next(ctx, id.UserID, history)
		if err != nil {
			push(errorMessage(err.Error()))
			return true
		}
		if !done {
			pending = &q
			return !push(outboundMessage[any]{Type: "question", Payload: questionPayload{Question: q, Answered: len(history)}})
		}
		s.finishChat(push, r, id.UserID, history)
		return true
	}

	if advance() {
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		var ok bool
		switch inbound.Type {
		case "answer":
			var payload answerRequest
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				ok = push(errorMessage("invalid answer payload"))
				break
			}
			if pending == nil || payload.QuestionID != pending.ID {
				ok = push(errorMessage("answer does not match the current question"))
				break
			}
			item, err := s.assessment.Answer(ctx, id.UserID, payload.QuestionID, payload.Answer)
			if err != nil {
				ok = push(errorMessage(err.Error()))
				break
			}
			history = append(history, item)
			pending = nil
			ok = push(outboundMessage[any]{Type: "answerResult", Payload: item}) && !advance()
		case "finish":
			if len(history) == 0 {
				ok = push(errorMessage(domain.ErrEmptyHistory.Error()))
				break
			}
			s.finishChat(push, r, id.UserID, history)
		default:
			ok = push(errorMessage("unsupported message type"))
		}
		if !ok {
			return
		}
	}
}

func (s *Server) finishChat(push func(outboundMessage[any]) bool, r *http.Request, userID string, history []domain.AnsweredItem) {
	res, err := s.assessment.Finish(r.Context(), userID, history)
	if err != nil {
		log.Printf("finish assessment for %s: %v", userID, err)
		push(errorMessage(err.Error()))
		return
	}
	push(outboundMessage[any]{Type: "result", Payload: res})
}

// ServeDoctorFeed streams completed screenings to a doctor's dashboard.
func (s *Server) ServeDoctorFeed(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		writeError(w, http.StatusNotFound, "live feed disabled")
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	notices, cancel := s.feed.Subscribe()
	defer cancel()

	closeSignals := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				close(closeSignals)
				return
			}
		}
	}()

	for {
		select {
		case n, ok := <-notices:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[domain.ScreeningNotice]{Type: "screening", Payload: n}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-closeSignals:
			<-readerDone
			return
		case <-r.Context().Done():
			return
		}
	}
}
