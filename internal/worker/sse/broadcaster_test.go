package sse

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// BroadcasterSuite is a test suite for Broadcaster operations.
type BroadcasterSuite struct {
	suite.Suite
	broadcaster *Broadcaster
}

func (s *BroadcasterSuite) SetupTest() {
	s.broadcaster = NewBroadcaster()
}

func TestBroadcasterSuite(t *testing.T) {
	suite.Run(t, new(BroadcasterSuite))
}

// mockResponseWriter implements http.ResponseWriter and http.Flusher for testing.
type mockResponseWriter struct {
	header   http.Header
	body     []byte
	mu       sync.Mutex
	writeErr error
}

func newMockResponseWriter() *mockResponseWriter {
	return &mockResponseWriter{header: make(http.Header)}
}

func (m *mockResponseWriter) Header() http.Header { return m.header }

func (m *mockResponseWriter) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.body = append(m.body, data...)
	return len(data), nil
}

func (m *mockResponseWriter) WriteHeader(int) {}

func (m *mockResponseWriter) Flush() {}

func (m *mockResponseWriter) Body() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.body)
}

// notFlusher lacks http.Flusher.
type notFlusher struct{ http.ResponseWriter }

func (s *BroadcasterSuite) TestAddAndRemoveClient() {
	client, err := s.broadcaster.AddClient(newMockResponseWriter())
	s.Require().NoError(err)
	s.NotEmpty(client.ID)
	s.Equal(1, s.broadcaster.ClientCount())

	s.broadcaster.RemoveClient(client)
	s.broadcaster.RemoveClient(client)
	s.Equal(0, s.broadcaster.ClientCount())

	select {
	case <-client.Done:
	default:
		s.Fail("Done channel should be closed")
	}
}

func (s *BroadcasterSuite) TestAddClientRequiresFlusher() {
	_, err := s.broadcaster.AddClient(notFlusher{newMockResponseWriter()})
	s.Error(err)
	s.Equal(0, s.broadcaster.ClientCount())
}

func (s *BroadcasterSuite) TestPublish() {
	writers := make([]*mockResponseWriter, 3)
	for i := range writers {
		writers[i] = newMockResponseWriter()
		_, err := s.broadcaster.AddClient(writers[i])
		s.Require().NoError(err)
	}

	s.Require().NoError(s.broadcaster.Publish("snapshot", map[string]int{"n": 10}))

	for i, w := range writers {
		s.Equal("event: snapshot\ndata: {\"n\":10}\n\n", w.Body(), "client %d", i)
	}
}

func (s *BroadcasterSuite) TestPublishNoClients() {
	s.NoError(s.broadcaster.Publish("snapshot", map[string]string{"type": "test"}))
}

func (s *BroadcasterSuite) TestPublishUnencodable() {
	err := s.broadcaster.Publish("snapshot", make(chan int))
	s.Error(err)
	s.Empty(s.broadcaster.cached())
}

func (s *BroadcasterSuite) TestDeadClientRemoved() {
	bad := newMockResponseWriter()
	bad.writeErr = errors.New("broken pipe")
	good := newMockResponseWriter()

	badClient, err := s.broadcaster.AddClient(bad)
	s.Require().NoError(err)
	_, err = s.broadcaster.AddClient(good)
	s.Require().NoError(err)

	s.Require().NoError(s.broadcaster.Publish("snapshot", 1))

	s.Equal(1, s.broadcaster.ClientCount())
	s.Contains(good.Body(), "data: 1")
	select {
	case <-badClient.Done:
	default:
		s.Fail("dead client should be closed")
	}
}

func (s *BroadcasterSuite) TestCacheKeepsLastFramePerEvent() {
	s.Require().NoError(s.broadcaster.Publish("snapshot", 1))
	s.Require().NoError(s.broadcaster.Publish("status", "ok"))
	s.Require().NoError(s.broadcaster.Publish("snapshot", 2))

	frames := s.broadcaster.cached()
	s.Require().Len(frames, 2)
	s.Equal("event: snapshot\ndata: 2\n\n", string(frames[0]))
	s.Equal("event: status\ndata: \"ok\"\n\n", string(frames[1]))
}

func TestFrameWithoutEventName(t *testing.T) {
	frame, err := Frame("", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, "data: [\"a\"]\n\n", string(frame))
}

func TestClientUniqueIDs(t *testing.T) {
	b := NewBroadcaster()
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		client, err := b.AddClient(newMockResponseWriter())
		require.NoError(t, err)
		assert.False(t, ids[client.ID], "ID %s should be unique", client.ID)
		ids[client.ID] = true
	}
}

func TestHandleSSEReplaysCachedFrames(t *testing.T) {
	b := NewBroadcaster()
	require.NoError(t, b.Publish("snapshot", map[string]int{"tick": 1}))

	srv := httptest.NewServer(http.HandlerFunc(b.HandleSSE))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readFrame := func() string {
		var sb strings.Builder
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if line == "\n" {
				return sb.String()
			}
			sb.WriteString(line)
		}
	}

	assert.Contains(t, readFrame(), "event: hello")
	assert.Equal(t, "event: snapshot\ndata: {\"tick\":1}\n", readFrame())

	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, b.Publish("snapshot", map[string]int{"tick": 2}))
	assert.Equal(t, "event: snapshot\ndata: {\"tick\":2}\n", readFrame())

	cancel()
	assert.Eventually(t, func() bool { return b.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestConcurrentPublish(t *testing.T) {
	b := NewBroadcaster()
	writers := make([]*mockResponseWriter, 10)
	for i := range writers {
		writers[i] = newMockResponseWriter()
		_, err := b.AddClient(writers[i])
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = b.Publish("tick", i)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, b.ClientCount())
	for _, w := range writers {
		assert.Equal(t, 100, strings.Count(w.Body(), "event: tick\n"))
	}
}
