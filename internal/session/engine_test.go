package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gridgame/internal/apperr"
	"gridgame/internal/model"
	"gridgame/internal/store"
)

// fakeStore is an in-memory stand-in for the Session Store, letting the
// engine's state-machine logic be exercised without a database. It holds
// one real mutex per session id so two goroutines calling LockSession for
// the same id actually block on each other the way SELECT ... FOR UPDATE
// does against Postgres, instead of merely running in sequence.
type fakeStore struct {
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	users    map[string]*model.User
	sessions map[string]*model.Session
	moves    map[string][]model.Move
}

func newFakeStore(users ...*model.User) *fakeStore {
	fs := &fakeStore{
		locks:    map[string]*sync.Mutex{},
		users:    map[string]*model.User{},
		sessions: map[string]*model.Session{},
		moves:    map[string][]model.Move{},
	}
	for _, u := range users {
		if u == nil {
			continue
		}
		fs.users[u.ID] = u
	}
	return fs
}

func (fs *fakeStore) GetUser(_ context.Context, id string) (*model.User, error) {
	u, ok := fs.users[id]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeNotFoundUser, "user not found")
	}
	return u, nil
}

func (fs *fakeStore) CreateSession(_ context.Context, sess *model.Session) error {
	fs.sessions[sess.ID] = sess
	return nil
}

func (fs *fakeStore) lockFor(id string) *sync.Mutex {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	l, ok := fs.locks[id]
	if !ok {
		l = &sync.Mutex{}
		fs.locks[id] = l
	}
	return l
}

func (fs *fakeStore) LockSession(_ context.Context, id string) (store.SessionTx, error) {
	lock := fs.lockFor(id)
	lock.Lock()

	fs.mu.Lock()
	sess, ok := fs.sessions[id]
	fs.mu.Unlock()
	if !ok {
		lock.Unlock()
		return nil, apperr.NotFound(apperr.CodeNotFoundSession, "session not found")
	}
	// Deep-copy the board so a rolled-back transaction can never leak a
	// partial mutation back into the fake's committed state.
	cp := *sess
	cp.Board = make(model.Board, len(sess.Board))
	for i, row := range sess.Board {
		cp.Board[i] = append([]*string(nil), row...)
	}
	return &fakeTx{fs: fs, lock: lock, session: &cp}, nil
}

type fakeTx struct {
	fs          *fakeStore
	lock        *sync.Mutex
	released    bool
	session     *model.Session
	pendingMove *model.Move
}

func (t *fakeTx) release() {
	if !t.released {
		t.released = true
		t.lock.Unlock()
	}
}

func (t *fakeTx) Session() *model.Session { return t.session }

func (t *fakeTx) UpdateSession(_ context.Context, sess *model.Session) error {
	t.session = sess
	return nil
}

func (t *fakeTx) AppendMove(_ context.Context, move *model.Move) error {
	t.fs.mu.Lock()
	existing := t.fs.moves[move.SessionID]
	t.fs.mu.Unlock()
	move.MoveNo = len(existing) + 1
	move.CreatedAt = time.Now()
	t.pendingMove = move
	return nil
}

func (t *fakeTx) Commit() error {
	t.fs.mu.Lock()
	t.fs.sessions[t.session.ID] = t.session
	if t.pendingMove != nil {
		t.fs.moves[t.session.ID] = append(t.fs.moves[t.session.ID], *t.pendingMove)
	}
	t.fs.mu.Unlock()
	t.release()
	return nil
}

func (t *fakeTx) Rollback() error {
	t.release()
	return nil
}

var _ store.SessionTx = (*fakeTx)(nil)

func setupEngine(t *testing.T, host, guest *model.User) (*Engine, *fakeStore) {
	t.Helper()
	fs := newFakeStore(host, guest)
	counter := 0
	newID := func() string {
		counter++
		return "s" + string(rune('0'+counter))
	}
	now := func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return New(fs, newID, now), fs
}

func mustCreateAndJoin(t *testing.T, e *Engine, host, guest *model.User) *model.Session {
	t.Helper()
	sess, err := e.CreateSession(context.Background(), CreateSessionInput{HostID: host.ID})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	sess, err = e.JoinSession(context.Background(), sess.ID, guest.ID)
	if err != nil {
		t.Fatalf("JoinSession() error = %v", err)
	}
	return sess
}

func TestScenarioS1DiagonalWin(t *testing.T) {
	u1 := &model.User{ID: "U1", Name: "Alice"}
	u2 := &model.User{ID: "U2", Name: "Bob"}
	e, _ := setupEngine(t, u1, u2)
	sess := mustCreateAndJoin(t, e, u1, u2)

	moves := []struct {
		player   string
		row, col int
	}{
		{u1.ID, 0, 0}, {u2.ID, 0, 1}, {u1.ID, 1, 1}, {u2.ID, 0, 2}, {u1.ID, 2, 2},
	}

	var final *model.Session
	for _, m := range moves {
		var err error
		final, err = e.SubmitMove(context.Background(), sess.ID, m.player, m.row, m.col)
		if err != nil {
			t.Fatalf("SubmitMove(%s, %d, %d) error = %v", m.player, m.row, m.col, err)
		}
	}

	if final.Winner == nil || *final.Winner != u1.ID {
		t.Fatalf("winner = %v, want %s", final.Winner, u1.ID)
	}
	if final.Status != model.StatusFinished || final.Draw {
		t.Fatalf("status/draw = %v/%v, want FINISHED/false", final.Status, final.Draw)
	}
	if final.CurrentTurn != nil {
		t.Fatalf("currentTurn = %v, want nil", final.CurrentTurn)
	}
}

func TestScenarioS2Draw(t *testing.T) {
	u1 := &model.User{ID: "U1", Name: "Alice"}
	u2 := &model.User{ID: "U2", Name: "Bob"}
	e, _ := setupEngine(t, u1, u2)
	sess := mustCreateAndJoin(t, e, u1, u2)

	moves := []struct {
		player   string
		row, col int
	}{
		{u1.ID, 0, 0}, {u2.ID, 0, 1}, {u1.ID, 0, 2},
		{u2.ID, 1, 1}, {u1.ID, 1, 0}, {u2.ID, 1, 2},
		{u1.ID, 2, 1}, {u2.ID, 2, 0}, {u1.ID, 2, 2},
	}

	var final *model.Session
	for _, m := range moves {
		var err error
		final, err = e.SubmitMove(context.Background(), sess.ID, m.player, m.row, m.col)
		if err != nil {
			t.Fatalf("SubmitMove(%s, %d, %d) error = %v", m.player, m.row, m.col, err)
		}
	}

	if !final.Draw || final.Winner != nil || final.Status != model.StatusFinished {
		t.Fatalf("final = %+v, want draw=true winner=nil status=FINISHED", final)
	}
}

func TestScenarioS3OutOfTurnRejection(t *testing.T) {
	u1 := &model.User{ID: "U1", Name: "Alice"}
	u2 := &model.User{ID: "U2", Name: "Bob"}
	e, fs := setupEngine(t, u1, u2)
	sess := mustCreateAndJoin(t, e, u1, u2)

	_, err := e.SubmitMove(context.Background(), sess.ID, u2.ID, 0, 0)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Code != apperr.CodeNotYourTurn {
		t.Fatalf("SubmitMove() error = %v, want not_your_turn", err)
	}

	stored := fs.sessions[sess.ID]
	if len(fs.moves[sess.ID]) != 0 {
		t.Fatalf("moves = %v, want empty after rejected move", fs.moves[sess.ID])
	}
	if stored.CurrentTurn == nil || *stored.CurrentTurn != u1.ID {
		t.Fatalf("currentTurn = %v, want unchanged %s", stored.CurrentTurn, u1.ID)
	}
}

func TestScenarioS5ConnectFourVerticalWin(t *testing.T) {
	u1 := &model.User{ID: "U1", Name: "Alice"}
	u2 := &model.User{ID: "U2", Name: "Bob"}
	e, fs := setupEngine(t, u1, u2)

	sess, err := e.CreateSession(context.Background(), CreateSessionInput{HostID: u1.ID, GameType: model.ConnectFour})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	sess, err = e.JoinSession(context.Background(), sess.ID, u2.ID)
	if err != nil {
		t.Fatalf("JoinSession() error = %v", err)
	}
	_ = fs

	moves := []struct {
		player   string
		row, col int
	}{
		{u1.ID, 5, 3}, {u2.ID, 5, 4}, {u1.ID, 4, 3}, {u2.ID, 4, 4}, {u1.ID, 3, 3}, {u2.ID, 3, 4}, {u1.ID, 2, 3},
	}

	var final *model.Session
	for _, m := range moves {
		var err error
		final, err = e.SubmitMove(context.Background(), sess.ID, m.player, m.row, m.col)
		if err != nil {
			t.Fatalf("SubmitMove(%s, %d, %d) error = %v", m.player, m.row, m.col, err)
		}
	}

	if final.Winner == nil || *final.Winner != u1.ID {
		t.Fatalf("winner = %v, want %s", final.Winner, u1.ID)
	}
	if final.Status != model.StatusFinished {
		t.Fatalf("status = %v, want FINISHED", final.Status)
	}

	col := 3
	for row := 2; row <= 5; row++ {
		cell := final.Board.Cell(row, col)
		if cell == nil || *cell != u1.ID {
			t.Fatalf("board[%d][%d] = %v, want %s", row, col, cell, u1.ID)
		}
	}
}

func TestScenarioS6JoinAfterFinished(t *testing.T) {
	u1 := &model.User{ID: "U1", Name: "Alice"}
	u2 := &model.User{ID: "U2", Name: "Bob"}
	u3 := &model.User{ID: "U3", Name: "Carol"}
	e, fs := setupEngine(t, u1, u2)
	fs.users[u3.ID] = u3
	sess := mustCreateAndJoin(t, e, u1, u2)

	moves := []struct {
		player   string
		row, col int
	}{
		{u1.ID, 0, 0}, {u2.ID, 0, 1}, {u1.ID, 1, 1}, {u2.ID, 0, 2}, {u1.ID, 2, 2},
	}
	for _, m := range moves {
		if _, err := e.SubmitMove(context.Background(), sess.ID, m.player, m.row, m.col); err != nil {
			t.Fatalf("SubmitMove() error = %v", err)
		}
	}

	before := *fs.sessions[sess.ID]
	_, err := e.JoinSession(context.Background(), sess.ID, u3.ID)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Code != apperr.CodeAlreadyFinished {
		t.Fatalf("JoinSession() error = %v, want already_finished", err)
	}
	after := fs.sessions[sess.ID]
	if before.Status != after.Status || before.Winner == nil || after.Winner == nil || *before.Winner != *after.Winner {
		t.Fatalf("session mutated by rejected join: before=%+v after=%+v", before, after)
	}
}

func TestJoinOwnSessionRejected(t *testing.T) {
	u1 := &model.User{ID: "U1", Name: "Alice"}
	e, _ := setupEngine(t, u1, nil)
	sess, err := e.CreateSession(context.Background(), CreateSessionInput{HostID: u1.ID})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	_, err = e.JoinSession(context.Background(), sess.ID, u1.ID)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Code != apperr.CodeCannotJoinOwnSession {
		t.Fatalf("JoinSession() error = %v, want cannot_join_own_session", err)
	}
}

func TestRejoinActiveSessionIsIdempotent(t *testing.T) {
	u1 := &model.User{ID: "U1", Name: "Alice"}
	u2 := &model.User{ID: "U2", Name: "Bob"}
	e, _ := setupEngine(t, u1, u2)
	sess := mustCreateAndJoin(t, e, u1, u2)

	again, err := e.JoinSession(context.Background(), sess.ID, u2.ID)
	if err != nil {
		t.Fatalf("JoinSession() rejoin error = %v, want idempotent success", err)
	}
	if again.Status != model.StatusActive {
		t.Fatalf("status after rejoin = %v, want ACTIVE", again.Status)
	}
}

func TestUnknownGameTypeRejected(t *testing.T) {
	u1 := &model.User{ID: "U1", Name: "Alice"}
	e, _ := setupEngine(t, u1, nil)

	_, err := e.CreateSession(context.Background(), CreateSessionInput{HostID: u1.ID, GameType: model.GameType("checkers")})
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Code != apperr.CodeUnknownGameType {
		t.Fatalf("CreateSession() error = %v, want unknown_game_type", err)
	}
}

// TestScenarioS4ConcurrentMovesOnSameCell fires U1(1,1) and U2(1,1) from
// two real goroutines at the same time. fakeStore.LockSession blocks the
// second caller on the session's mutex until the first's SessionTx is
// released, the same serialization SELECT ... FOR UPDATE provides against
// Postgres, so whichever goroutine actually wins the race still only ever
// sees a consistent, already-committed board. Exactly one of the two must
// commit (U1, since U2 is not on turn); the other is rejected with
// not_your_turn if U2 locks first, or cell_occupied if U2 locks after U1's
// move (U2 is then on turn but (1,1) is taken); the board must end with
// exactly one occupied cell.
func TestScenarioS4ConcurrentMovesOnSameCell(t *testing.T) {
	u1 := &model.User{ID: "U1", Name: "Alice"}
	u2 := &model.User{ID: "U2", Name: "Bob"}
	e, fs := setupEngine(t, u1, u2)
	sess := mustCreateAndJoin(t, e, u1, u2)

	var wg sync.WaitGroup
	results := make([]error, 2)
	start := make(chan struct{})

	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		_, results[0] = e.SubmitMove(context.Background(), sess.ID, u1.ID, 1, 1)
	}()
	go func() {
		defer wg.Done()
		<-start
		_, results[1] = e.SubmitMove(context.Background(), sess.ID, u2.ID, 1, 1)
	}()
	close(start)
	wg.Wait()

	var oks, rejections int
	for _, err := range results {
		switch {
		case err == nil:
			oks++
		default:
			var appErr *apperr.Error
			if !errors.As(err, &appErr) || (appErr.Code != apperr.CodeNotYourTurn && appErr.Code != apperr.CodeCellOccupied) {
				t.Fatalf("SubmitMove() concurrent error = %v, want nil, not_your_turn or cell_occupied", err)
			}
			rejections++
		}
	}
	if oks != 1 || rejections != 1 {
		t.Fatalf("got %d ok / %d rejected, want exactly one of each", oks, rejections)
	}

	final := fs.sessions[sess.ID]
	occupied := 0
	for _, row := range final.Board {
		for _, cell := range row {
			if cell != nil {
				occupied++
			}
		}
	}
	if occupied != 1 {
		t.Fatalf("board has %d occupied cells after the race, want exactly 1", occupied)
	}
	if len(fs.moves[sess.ID]) != 1 {
		t.Fatalf("moves = %+v, want exactly one accepted move", fs.moves[sess.ID])
	}
}
