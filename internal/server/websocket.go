package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/leonardotrapani/webwhisper/internal/engine"
	"github.com/leonardotrapani/webwhisper/internal/language"
	"github.com/leonardotrapani/webwhisper/internal/recording"
	"github.com/leonardotrapani/webwhisper/internal/session"
	"github.com/leonardotrapani/webwhisper/internal/transcript"
)

const (
	maxFrameBytes      = 1 << 20
	maxMicrophoneBytes = 256 << 20
	wsWriteTimeout     = 10 * time.Second
)

// MicrophoneStart is the first text message on /ws/microphone.
type MicrophoneStart struct {
	SampleRate     int    `json:"sample_rate"`
	Channels       int    `json:"channels"`
	Language       string `json:"language"`
	WordTimestamps *bool  `json:"word_timestamps"`
	OutputFormat   string `json:"output_format"`
	Tier           string `json:"tier"`
	Save           *bool  `json:"save"`
}

// MicrophoneControl ends a recording: action is "stop" or "cancel".
type MicrophoneControl struct {
	Action string `json:"action"`
}

// handleMicrophone receives s16le PCM frames and transcribes them when the
// client sends stop.
func (s *Server) handleMicrophone(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Server: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	id := uuid.NewString()
	log.Printf("Server: microphone session %s connected", id)

	req, start, err := s.readStart(conn)
	if err != nil {
		s.wsFail(conn, id, err)
		return
	}

	pcm := make([]byte, 0, start.SampleRate*start.Channels*2*10)
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Server: microphone session %s read error: %v", id, err)
			}
			return
		}

		if msgType == websocket.BinaryMessage {
			if len(pcm)+len(data) > maxMicrophoneBytes {
				s.wsFail(conn, id, fmt.Errorf("recording too long"))
				return
			}
			pcm = append(pcm, data...)
			continue
		}

		var ctrl MicrophoneControl
		if err := json.Unmarshal(data, &ctrl); err != nil {
			s.wsFail(conn, id, fmt.Errorf("invalid control message: %w", err))
			return
		}
		switch ctrl.Action {
		case "cancel":
			log.Printf("Server: microphone session %s cancelled", id)
			s.wsWrite(conn, TranscribeResponse{ID: id, State: "cancelled", Files: []string{}})
			return
		case "stop":
			req.Microphone = recording.FromPCM16LE(pcm, start.SampleRate, start.Channels)
			log.Printf("Server: microphone session %s received %v of audio", id, req.Microphone.Duration())
			resp := s.transcribe(r.Context(), req)
			s.wsWrite(conn, newTranscribeResponse(id, resp))
			s.wsClose(conn)
			return
		default:
			s.wsFail(conn, id, fmt.Errorf("unknown action: %q", ctrl.Action))
			return
		}
	}
}

func (s *Server) readStart(conn *websocket.Conn) (session.Request, MicrophoneStart, error) {
	req := s.defaults()
	var start MicrophoneStart

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		return req, start, fmt.Errorf("read start message: %w", err)
	}
	if msgType != websocket.TextMessage {
		return req, start, fmt.Errorf("first message must be a JSON start message")
	}
	if err := json.Unmarshal(data, &start); err != nil {
		return req, start, fmt.Errorf("invalid start message: %w", err)
	}

	if start.SampleRate <= 0 {
		start.SampleRate = 16000
	}
	if start.Channels <= 0 {
		start.Channels = 1
	}
	if start.Language != "" {
		if !language.IsValidCode(start.Language) {
			return req, start, fmt.Errorf("unsupported language: %s", start.Language)
		}
		req.Language = start.Language
	}
	if start.WordTimestamps != nil {
		req.WordTimestamps = *start.WordTimestamps
	}
	if start.OutputFormat != "" {
		kind, err := transcript.ParseKind(start.OutputFormat)
		if err != nil {
			return req, start, err
		}
		req.OutputFormat = kind
	}
	if start.Tier != "" {
		req.Tier = engine.ParseTier(start.Tier)
	}
	if start.Save != nil {
		req.Save = start.Save
	}
	return req, start, nil
}

func (s *Server) wsFail(conn *websocket.Conn, id string, err error) {
	log.Printf("Server: microphone session %s failed: %v", id, err)
	s.wsWrite(conn, TranscribeResponse{ID: id, State: session.Failed.String(), Text: err.Error(), Files: []string{}, Error: err.Error()})
	s.wsClose(conn)
}

func (s *Server) wsWrite(conn *websocket.Conn, v any) {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(v); err != nil {
		log.Printf("Server: websocket write failed: %v", err)
	}
}

func (s *Server) wsClose(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
