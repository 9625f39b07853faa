// Package logger provides a thread-safe in-memory logger for operator
// status messages, with fan-out to live subscribers such as the dashboard
// event stream.
package logger

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message represents a single log message
type Message struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	Level     string    `json:"level"` // info, warning, error
}

// Logger manages in-memory log messages
type Logger struct {
	mu          sync.RWMutex
	messages    []Message
	maxSize     int
	subscribers map[string]chan Message
}

// New creates a new logger with specified max message count
func New(maxSize int) *Logger {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Logger{
		messages:    make([]Message, 0, maxSize),
		maxSize:     maxSize,
		subscribers: make(map[string]chan Message),
	}
}

// Log adds a new message to the logger and hands it to every subscriber.
// Subscribers that are not keeping up miss the message rather than
// blocking the caller.
func (l *Logger) Log(level, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := Message{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Text:      text,
		Level:     level,
	}

	l.messages = append(l.messages, msg)

	// Keep only the last maxSize messages
	if len(l.messages) > l.maxSize {
		l.messages = l.messages[len(l.messages)-l.maxSize:]
	}

	for _, ch := range l.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Info logs an info-level message
func (l *Logger) Info(text string) {
	l.Log("info", text)
}

// Infof logs a formatted info-level message
func (l *Logger) Infof(format string, args ...any) {
	l.Log("info", fmt.Sprintf(format, args...))
}

// Warning logs a warning-level message
func (l *Logger) Warning(text string) {
	l.Log("warning", text)
}

// Warningf logs a formatted warning-level message
func (l *Logger) Warningf(format string, args ...any) {
	l.Log("warning", fmt.Sprintf(format, args...))
}

// Error logs an error-level message
func (l *Logger) Error(text string) {
	l.Log("error", text)
}

// GetRecent returns the most recent n messages (newest first)
func (l *Logger) GetRecent(n int) []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.messages) {
		n = len(l.messages)
	}

	result := make([]Message, n)
	for i := 0; i < n; i++ {
		result[i] = l.messages[len(l.messages)-1-i]
	}

	return result
}

// GetAll returns all messages (newest first)
func (l *Logger) GetAll() []Message {
	return l.GetRecent(l.maxSize)
}

// Subscribe registers a buffered channel that receives every message
// logged from now on. The returned id is passed to Unsubscribe.
func (l *Logger) Subscribe(buffer int) (string, <-chan Message) {
	id := uuid.NewString()
	ch := make(chan Message, buffer)

	l.mu.Lock()
	l.subscribers[id] = ch
	l.mu.Unlock()

	return id, ch
}

// Unsubscribe removes and closes the subscriber's channel.
func (l *Logger) Unsubscribe(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ch, ok := l.subscribers[id]; ok {
		delete(l.subscribers, id)
		close(ch)
	}
}
