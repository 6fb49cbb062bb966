package headless

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/rudderlabs/rudder-go-kit/logger"

	"github.com/xhd2015/dlv-rpc/debug/common"
)

// SessionManager manages connections to headless servers
type SessionManager struct {
	log      logger.Logger
	opts     []Option
	sessions map[string]*Session
	mu       sync.Mutex
}

// NewSessionManager creates a new headless session manager. opts are
// applied to every client it connects.
func NewSessionManager(log logger.Logger, opts ...Option) *SessionManager {
	return &SessionManager{
		log:      log.Child("sessions"),
		opts:     append([]Option{WithLogger(log)}, opts...),
		sessions: make(map[string]*Session),
	}
}

var _ common.SessionManager = (*SessionManager)(nil)

// Connect connects to the server at addr and upgrades the transport when
// transport asks for a persistent one.
func (sm *SessionManager) Connect(ctx context.Context, addr string, transport string) (*common.SessionInfo, error) {
	mode, upgrade, err := ParseTransport(transport)
	if err != nil {
		return nil, err
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in address %q: %w", addr, err)
	}

	client, err := New(ctx, host, port, sm.opts...)
	if err != nil {
		return nil, err
	}
	if upgrade {
		if err := client.Upgrade(ctx, mode); err != nil {
			client.Close()
			return nil, err
		}
	}

	session := &Session{
		id:     fmt.Sprintf("session-%d", uuid.New().ID()),
		client: client,
	}

	sm.mu.Lock()
	sm.sessions[session.id] = session
	sm.mu.Unlock()

	sm.log.Infon("Session created",
		logger.NewStringField("session", session.id),
		logger.NewStringField("addr", client.Addr()),
	)
	return session.info(), nil
}

// TerminateSession terminates a debug session
func (sm *SessionManager) TerminateSession(ctx context.Context, sessionID string, detach bool, kill bool) error {
	sm.mu.Lock()
	session, ok := sm.sessions[sessionID]
	if ok {
		delete(sm.sessions, sessionID)
	}
	sm.mu.Unlock()
	if !ok {
		return fmt.Errorf("session not found: %s", sessionID)
	}

	if detach {
		if err := session.client.DetachProcess(ctx, kill); err != nil {
			// Continue with the cleanup even if detaching fails
			sm.log.Warnn("Failed to detach",
				logger.NewStringField("session", sessionID),
				logger.NewErrorField(err),
			)
		}
	}
	if err := session.client.Close(); err != nil {
		return fmt.Errorf("failed to close client connection: %w", err)
	}
	return nil
}

// ListSessions returns a list of active debug sessions
func (sm *SessionManager) ListSessions() []*common.SessionInfo {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	result := make([]*common.SessionInfo, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		result = append(result, session.info())
	}
	return result
}

// GetSession returns a debug session by ID
func (sm *SessionManager) GetSession(sessionID string) (common.Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, ok := sm.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	return session, nil
}

// Session is a connection to one headless server
type Session struct {
	id     string
	client *Client
}

// GetID returns the session ID
func (s *Session) GetID() string {
	return s.id
}

// Client returns the session's client
func (s *Session) Client() common.DebuggerClient {
	return s.client
}

func (s *Session) info() *common.SessionInfo {
	return &common.SessionInfo{
		ID:        s.id,
		Addr:      s.client.Addr(),
		Transport: s.client.State().String(),
	}
}
