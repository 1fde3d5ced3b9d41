// Package gameserver hosts live simulations for remote players: one
// session per profile, ticked on a shared loop and reachable over gRPC.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/survivors/internal/game/command"
	"github.com/cory-johannsen/survivors/internal/game/content"
	"github.com/cory-johannsen/survivors/internal/game/dice"
	"github.com/cory-johannsen/survivors/internal/game/event"
	"github.com/cory-johannsen/survivors/internal/game/meta"
	"github.com/cory-johannsen/survivors/internal/game/session"
	"github.com/cory-johannsen/survivors/internal/game/sim"
	"github.com/cory-johannsen/survivors/internal/observability"
	"github.com/cory-johannsen/survivors/internal/scripting"
)

// ErrSessionNotFound is returned for an unknown session id.
var ErrSessionNotFound = errors.New("gameserver: session not found")

// HostConfig holds the per-session simulation settings.
type HostConfig struct {
	Sim sim.Config
	// Seed fixes every session's random source when non-zero.
	Seed             uint64
	DefaultCharacter string
	DefaultStage     string
	// OutboxSize is the per-session frame buffer.
	OutboxSize int
	// PersistTimeout bounds each store call.
	PersistTimeout time.Duration
}

// HostDeps are the collaborators a Host is built from.
type HostDeps struct {
	Content *content.Catalog
	// Store persists meta state; nil keeps profiles in memory.
	Store meta.Store
	// Runs receives finished runs; nil disables run history.
	Runs meta.RunLog
	// Scripts opens stage hooks; nil disables scripting.
	Scripts *scripting.Manager
	Loop    *TickLoop
	Logger  *zap.Logger
}

// Host owns the live sessions.
type Host struct {
	cfg      HostConfig
	content  *content.Catalog
	store    meta.Store
	runs     meta.RunLog
	scripts  *scripting.Manager
	loop     *TickLoop
	sessions *session.Manager
	executor *command.Executor
	logger   *zap.Logger

	mu     sync.Mutex
	hosted map[string]*hosted
}

// hosted is the host-side bookkeeping of one session.
type hosted struct {
	sess   *session.Session
	sim    *sim.Simulation
	script atomic.Pointer[scripting.Runtime]
}

// NewHost creates a Host.
//
// Precondition: deps.Content, deps.Loop and deps.Logger must be non-nil.
func NewHost(cfg HostConfig, deps HostDeps) *Host {
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 5 * time.Second
	}
	store := deps.Store
	if store == nil {
		store = meta.NewMemoryStore()
	}
	return &Host{
		cfg:      cfg,
		content:  deps.Content,
		store:    store,
		runs:     deps.Runs,
		scripts:  deps.Scripts,
		loop:     deps.Loop,
		sessions: session.NewManager(cfg.OutboxSize),
		executor: command.NewExecutor(cfg.DefaultCharacter, cfg.DefaultStage),
		logger:   deps.Logger,
		hosted:   make(map[string]*hosted),
	}
}

// Sessions exposes the session registry.
func (h *Host) Sessions() *session.Manager { return h.sessions }

// Join returns the live session of profile, creating it with the profile's
// stored meta state when there is none.
//
// Postcondition: a new session is registered on the tick loop.
func (h *Host) Join(ctx context.Context, profile string) (*session.Session, error) {
	if sess, ok := h.sessions.ByProfile(profile); ok {
		return sess, nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.cfg.PersistTimeout)
	defer cancel()
	st, err := meta.LoadState(ctx, h.store, profile, h.logger)
	if err != nil {
		return nil, err
	}
	ms := &st

	var src dice.Source = dice.NewCryptoSource()
	if h.cfg.Seed != 0 {
		src = dice.NewSeededSource(h.cfg.Seed)
	}
	hs := &hosted{}
	s := sim.New(h.cfg.Sim, sim.Deps{
		Content: h.content,
		Source:  src,
		Meta:    ms,
		Logger:  observability.SessionLogger(h.logger, profile, ""),
	}, event.NewLogSink(h.logger), event.SinkFunc(func(e event.Event) {
		if rt := hs.script.Load(); rt != nil {
			rt.Publish(e)
		}
	}))

	sess, err := h.sessions.Create(profile, s, ms, h.content.Shop())
	if err != nil {
		return nil, err
	}
	hs.sess = sess
	hs.sim = s

	h.mu.Lock()
	h.hosted[sess.ID] = hs
	h.mu.Unlock()
	h.loop.Register(sess.ID, func(delta time.Duration) { h.tick(hs, delta) })

	h.logger.Info("session joined",
		zap.String("session", sess.ID),
		zap.String("profile", profile),
		zap.Int("currency", st.Currency),
	)
	return sess, nil
}

// Leave saves the session's profile and drops the session.
func (h *Host) Leave(ctx context.Context, sessionID string) error {
	hs, err := h.lookup(sessionID)
	if err != nil {
		return err
	}
	h.loop.Unregister(sessionID)
	h.mu.Lock()
	delete(h.hosted, sessionID)
	h.mu.Unlock()

	hs.sess.With(func(*sim.Simulation) {
		if rt := hs.script.Swap(nil); rt != nil {
			rt.Close()
		}
	})
	saveErr := h.saveMeta(ctx, hs.sess)
	if err := h.sessions.Remove(sessionID); err != nil {
		return err
	}
	h.logger.Info("session left", zap.String("session", sessionID), zap.String("profile", hs.sess.Profile))
	return saveErr
}

// Target returns the command target of a session. Starting a run through it
// opens the stage's scripts; purchases through it are persisted.
func (h *Host) Target(sessionID string) (command.Target, error) {
	hs, err := h.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return &target{Session: hs.sess, host: h, hs: hs}, nil
}

// Execute runs one text command against a session.
func (h *Host) Execute(sessionID, line string) (string, error) {
	t, err := h.Target(sessionID)
	if err != nil {
		return "", err
	}
	return h.executor.Execute(t, line)
}

// Snapshot copies a session's simulation state.
func (h *Host) Snapshot(sessionID string) (sim.Snapshot, error) {
	hs, err := h.lookup(sessionID)
	if err != nil {
		return sim.Snapshot{}, err
	}
	return hs.sess.Snapshot(), nil
}

// History returns the most recent finished runs of profile.
func (h *Host) History(ctx context.Context, profile string, limit int) ([]meta.RunRecord, error) {
	if h.runs == nil {
		return nil, nil
	}
	return h.runs.Recent(ctx, profile, limit)
}

// Run drives the tick loop until ctx ends, then saves every profile.
func (h *Host) Run(ctx context.Context) error {
	err := h.loop.Run(ctx)
	for _, sess := range h.sessions.All() {
		if serr := h.saveMeta(context.WithoutCancel(ctx), sess); serr != nil {
			h.logger.Error("saving profile on shutdown", zap.String("profile", sess.Profile), zap.Error(serr))
		}
	}
	return err
}

func (h *Host) lookup(sessionID string) (*hosted, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hs, ok := h.hosted[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
	}
	return hs, nil
}

func (h *Host) tick(hs *hosted, delta time.Duration) {
	res, ended := hs.sess.Tick(delta)
	if !ended {
		return
	}
	hs.sess.With(func(*sim.Simulation) {
		if rt := hs.script.Swap(nil); rt != nil {
			rt.Close()
		}
	})
	h.finishRun(hs.sess, res)
}

// finishRun persists the profile and the run record of an ended run.
func (h *Host) finishRun(sess *session.Session, res sim.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.PersistTimeout)
	defer cancel()
	if err := h.saveMeta(ctx, sess); err != nil {
		h.logger.Error("saving profile after run", zap.String("profile", sess.Profile), zap.Error(err))
	}
	if h.runs != nil {
		rec := meta.RunRecord{
			Profile:   sess.Profile,
			Character: res.Character,
			Stage:     res.Stage,
			Survived:  res.Survived,
			Completed: res.Completed,
			Level:     res.Level,
			Kills:     res.Kills,
			Currency:  res.Currency,
			EndedAt:   time.Now(),
		}
		if err := h.runs.Append(ctx, rec); err != nil {
			h.logger.Error("recording run", zap.String("profile", sess.Profile), zap.Error(err))
		}
	}
	h.logger.Info("run finished",
		zap.String("session", sess.ID),
		zap.String("profile", sess.Profile),
		zap.String("stage", res.Stage),
		zap.Duration("survived", res.Survived),
		zap.Bool("completed", res.Completed),
		zap.Int("kills", res.Kills),
	)
}

func (h *Host) saveMeta(ctx context.Context, sess *session.Session) error {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.PersistTimeout)
	defer cancel()
	return meta.SaveState(ctx, h.store, sess.Profile, sess.Meta())
}

// target routes run starts through the host so stage scripts follow the
// run, and persists shop purchases.
type target struct {
	*session.Session
	host *Host
	hs   *hosted
}

func (t *target) StartRun(characterID, stageID string) error {
	var rt *scripting.Runtime
	if t.host.scripts != nil {
		var err error
		rt, err = t.host.scripts.Open(stageID, t.hs.sim)
		if err != nil {
			t.host.logger.Warn("stage scripts unavailable", zap.String("stage", stageID), zap.Error(err))
			rt = nil
		}
	}
	var err error
	t.Session.With(func(s *sim.Simulation) {
		if err = s.StartRun(characterID, stageID); err != nil {
			return
		}
		if old := t.hs.script.Swap(rt); old != nil {
			old.Close()
		}
	})
	if err != nil && rt != nil {
		rt.Close()
	}
	return err
}

func (t *target) Purchase(upgradeID string) (int, error) {
	cost, err := t.Session.Purchase(upgradeID)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.host.cfg.PersistTimeout)
	defer cancel()
	if err := t.host.saveMeta(ctx, t.Session); err != nil {
		t.host.logger.Error("saving profile after purchase", zap.String("profile", t.Profile), zap.Error(err))
	}
	return cost, nil
}
