// Package session はクライアント側の認証コンテキストを提供する。
//
// このAPIを呼び出すGoクライアントやツールに組み込んで使う。サーバーバイナリからは参照しない。
//
// Sessionはアクセストークンと所有者のメールアドレス、認証状態を保持する。
// 状態遷移:
//
//	Anonymous → Pending → TokenAcquired → Authenticated
//	TokenAcquired → Anonymous（検証失敗）
//	Authenticated → Anonymous（ログアウト）
//
// 永続化は注入されたStoreに委ね、トークン検証は注入されたVerifierに委ねる。
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// State はセッションの認証状態。
type State string

const (
	StateAnonymous     State = "anonymous"
	StatePending       State = "pending"
	StateTokenAcquired State = "token_acquired"
	StateAuthenticated State = "authenticated"
)

var (
	// ErrInvalidTransition は現在の状態から許されない遷移を要求した場合のエラー。
	ErrInvalidTransition = errors.New("invalid session state transition")
	// ErrEmptyToken は空のトークンを受け取った場合のエラー。
	ErrEmptyToken = errors.New("empty access token")
)

// Data はStoreに保存するセッションの内容。
type Data struct {
	Token string `toml:"token"`
	Email string `toml:"email"`
	State State  `toml:"state"`
}

// Session はクライアント側の認証状態を保持する。
type Session struct {
	store    Store
	verifier Verifier

	mu   sync.Mutex
	data Data
}

// New はStoreから前回の状態を復元してSessionを生成する。
// 保存された状態がない、または不正な場合はAnonymousから始める。
func New(store Store, verifier Verifier) (*Session, error) {
	s := &Session{
		store:    store,
		verifier: verifier,
		data:     Data{State: StateAnonymous},
	}

	saved, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if saved != nil && saved.State.valid() {
		s.data = *saved
		// トークンのない認証済み状態は復元しない
		if s.data.Token == "" && (s.data.State == StateTokenAcquired || s.data.State == StateAuthenticated) {
			s.data = Data{State: StateAnonymous, Email: saved.Email}
		}
	}
	return s, nil
}

// State は現在の状態を返す。
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.State
}

// Token は保持しているアクセストークンを返す。
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Token
}

// Email は保持しているメールアドレスを返す。
func (s *Session) Email() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Email
}

// IsAuthenticated は検証済みのトークンを保持しているかどうかを返す。
func (s *Session) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
}

// Snapshot は現在の内容のコピーを返す。
func (s *Session) Snapshot() Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// SetEmail はメールアドレスを設定する。状態は変えない。
func (s *Session) SetEmail(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.data
	next.Email = strings.TrimSpace(email)
	return s.commit(next)
}

// BeginLogin はログイン開始を記録する（Anonymous → Pending）。
func (s *Session) BeginLogin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.State != StateAnonymous && s.data.State != StatePending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.data.State, StatePending)
	}
	next := s.data
	next.State = StatePending
	return s.commit(next)
}

// AcquireToken はコールバックで受け取ったトークンを保持する（→ TokenAcquired）。
// リロード後にURLやCookieからトークンを拾う場合もあるため、Anonymousからの遷移も許す。
func (s *Session) AcquireToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.State == StateAuthenticated && s.data.Token == token {
		return nil
	}
	if s.data.State == StateAuthenticated {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.data.State, StateTokenAcquired)
	}
	next := s.data
	next.Token = token
	next.State = StateTokenAcquired
	return s.commit(next)
}

// Verify は保持しているトークンを検証する。
// 有効ならAuthenticated、無効ならトークンを破棄してAnonymousに戻る。
// 検証自体が失敗した場合（通信エラー等）は状態を変えずにエラーを返す。
func (s *Session) Verify(ctx context.Context) (bool, error) {
	s.mu.Lock()
	current := s.data
	s.mu.Unlock()

	if current.State != StateTokenAcquired && current.State != StateAuthenticated {
		return false, fmt.Errorf("%w: cannot verify in state %s", ErrInvalidTransition, current.State)
	}

	valid, err := s.verifier.Verify(ctx, current.Token)
	if err != nil {
		return false, fmt.Errorf("failed to verify token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 検証中にログアウトやトークン差し替えがあった場合は結果を捨てる
	if s.data.Token != current.Token || s.data.State != current.State {
		return false, fmt.Errorf("%w: session changed during verification", ErrInvalidTransition)
	}

	next := s.data
	if valid {
		next.State = StateAuthenticated
	} else {
		next.Token = ""
		next.State = StateAnonymous
	}
	if err := s.commit(next); err != nil {
		return false, err
	}
	return valid, nil
}

// Logout はトークンとメールアドレスを破棄してAnonymousに戻る。どの状態からでも呼べる。
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.data = Data{State: StateAnonymous}
	return nil
}

// commit はStoreへの保存に成功した場合のみ状態を更新する。呼び出し側でロックを保持すること。
func (s *Session) commit(next Data) error {
	if err := s.store.Save(next); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.data = next
	return nil
}

func (st State) valid() bool {
	switch st {
	case StateAnonymous, StatePending, StateTokenAcquired, StateAuthenticated:
		return true
	}
	return false
}
