// Command typingsim runs a self-contained typing presence demo: it starts
// the API server in-process with the in-memory store and a seeded
// directory, drives N scripted typists through the sync client's composer,
// and prints every indicator transition an observing poller sees.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/mahmudurrahman-beep/network/internal/client"
	"github.com/mahmudurrahman-beep/network/internal/directory"
	"github.com/mahmudurrahman-beep/network/internal/httpapi"
	"github.com/mahmudurrahman-beep/network/internal/session"
	"github.com/mahmudurrahman-beep/network/internal/typing"
)

const simRoom = 1

// staticSessions is an in-memory httpapi.SessionResolver for the demo.
type staticSessions struct {
	mu      sync.RWMutex
	byToken map[string]*session.Session
}

func newStaticSessions() *staticSessions {
	return &staticSessions{byToken: make(map[string]*session.Session)}
}

func (s *staticSessions) add(userID, username string) *session.Session {
	sess := &session.Session{
		Token:     "tok-" + username,
		UserID:    userID,
		Username:  username,
		CSRFToken: "csrf-" + username,
	}
	s.mu.Lock()
	s.byToken[sess.Token] = sess
	s.mu.Unlock()
	return sess
}

func (s *staticSessions) Get(_ context.Context, token string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byToken[token], nil
}

func (s *staticSessions) Touch(context.Context, string) error { return nil }

// consoleView prints indicator transitions with timestamps.
type consoleView struct {
	mu      sync.Mutex
	visible bool
	label   string
}

func (v *consoleView) ShowTyping(label string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.visible && v.label == label {
		return
	}
	v.visible = true
	v.label = label
	fmt.Printf("%s  [indicator] %s\n", time.Now().Format("15:04:05.000"), label)
}

func (v *consoleView) HideTyping() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.visible {
		return
	}
	v.visible = false
	v.label = ""
	fmt.Printf("%s  [indicator] (hidden)\n", time.Now().Format("15:04:05.000"))
}

// runTypist loops: burst of keystrokes, then either submit or trail off.
func runTypist(ctx context.Context, name string, c *client.Client) {
	composer := client.NewComposer(c)
	defer composer.Close()

	for {
		// Idle between messages.
		if !sleepCtx(ctx, time.Duration(1000+rand.Intn(4000))*time.Millisecond) {
			return
		}

		// Type a burst of keystrokes.
		strokes := 5 + rand.Intn(20)
		for i := 0; i < strokes; i++ {
			composer.Input()
			if !sleepCtx(ctx, time.Duration(100+rand.Intn(250))*time.Millisecond) {
				return
			}
		}

		if rand.Intn(3) > 0 {
			composer.Submit()
			log.Printf("[sim] %s submitted a message", name)
		} else {
			log.Printf("[sim] %s trailed off", name)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func main() {
	typists := 3
	if v := os.Getenv("TYPISTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			typists = n
		}
	}

	listenAddr := "127.0.0.1:8089"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		listenAddr = v
	}

	// In-process server: memory store, seeded directory, static sessions.
	store := typing.NewMemoryStore(typing.DefaultTTL)
	dir := directory.NewStaticDirectory()
	sessions := newStaticSessions()

	names := []string{"alice", "bob", "carol", "dave", "erin", "frank", "grace", "heidi"}
	var sessList []*session.Session
	for i := 0; i <= typists && i < len(names); i++ {
		id := strconv.Itoa(i + 1)
		dir.AddUser(id, names[i])
		dir.AddMember(simRoom, id)
		sessList = append(sessList, sessions.add(id, names[i]))
	}

	config := httpapi.DefaultConfig()
	config.ListenAddr = listenAddr
	server := httpapi.NewServer(config, store, dir, sessions, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go store.StartSweeper(ctx, 10*time.Second)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()
	time.Sleep(100 * time.Millisecond) // let the listener come up

	baseURL := "http://" + listenAddr
	target := client.RoomTarget(simRoom)

	// The last seeded user observes; the rest type.
	observer := sessList[len(sessList)-1]
	obsClient, err := client.New(baseURL, target, observer.Token, observer.CSRFToken)
	if err != nil {
		log.Fatalf("observer client: %v", err)
	}
	go client.NewPoller(obsClient, &consoleView{}, target).Run(ctx)
	log.Printf("[sim] %s is watching room %d", observer.Username, simRoom)

	for _, sess := range sessList[:len(sessList)-1] {
		c, err := client.New(baseURL, target, sess.Token, sess.CSRFToken)
		if err != nil {
			log.Fatalf("typist client: %v", err)
		}
		go runTypist(ctx, sess.Username, c)
		log.Printf("[sim] %s is typing in room %d", sess.Username, simRoom)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
