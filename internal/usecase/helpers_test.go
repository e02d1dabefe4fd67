package usecase_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"smartplant/internal/domain/model"
	"smartplant/internal/infra/db"
	"smartplant/internal/infra/events"
	"smartplant/internal/infra/llm"
	"smartplant/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// =====================
// DB helper（テストごとに別のインメモリDB）
// =====================

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := db.OpenSQLite("t" + uuid.NewString())
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func seedUser(t *testing.T, gdb *gorm.DB, email string, active bool) model.User {
	t.Helper()

	u := model.User{
		Email:        email,
		Username:     email,
		PasswordHash: "x",
		IsActive:     active,
	}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

func seedCategory(t *testing.T, gdb *gorm.DB, slug string) model.Category {
	t.Helper()

	c := model.Category{Name: slug, Slug: slug}
	require.NoError(t, gdb.Create(&c).Error)
	return c
}

func seedProduct(t *testing.T, gdb *gorm.DB, categoryID int64, slug string, price, stock int64) model.Product {
	t.Helper()

	p := model.Product{
		CategoryID: categoryID,
		Name:       slug,
		Slug:       slug,
		Price:      price,
		Stock:      stock,
		IsActive:   true,
	}
	require.NoError(t, gdb.Omit("Category").Create(&p).Error)
	return p
}

func stockOf(t *testing.T, gdb *gorm.DB, productID int64) int64 {
	t.Helper()

	var p model.Product
	require.NoError(t, gdb.First(&p, productID).Error)
	return p.Stock
}

func countRows(t *testing.T, gdb *gorm.DB, m interface{}) int64 {
	t.Helper()

	var n int64
	require.NoError(t, gdb.Model(m).Count(&n).Error)
	return n
}

// HTTPErrorのステータスを取り出す
func statusOf(t *testing.T, err error) int {
	t.Helper()

	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "want HTTPError, got %v", err)
	return he.Status
}

func nopLogger() *zap.Logger { return zap.NewNop() }

// =====================
// 外部サービスのフェイク
// =====================

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *fakeMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMail{}
	}
	return m.sent[len(m.sent)-1]
}

// 決まったコードを順に返す
type fixedCodes struct {
	mu    sync.Mutex
	codes []string
}

func (g *fixedCodes) NewCode() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.codes) == 0 {
		return "", errors.New("no more codes")
	}
	c := g.codes[0]
	g.codes = g.codes[1:]
	return c, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, ev events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeCompleter struct {
	reply   string
	err     error
	history []llm.Message
	prompt  string
}

func (c *fakeCompleter) Complete(_ context.Context, systemPrompt string, history []llm.Message, newMessage string) (string, error) {
	c.prompt = systemPrompt
	c.history = append([]llm.Message(nil), history...)
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func (c *fakeCompleter) Model() string        { return "test-model" }
func (c *fakeCompleter) Temperature() float64 { return 0.7 }

type fakeClassifier struct {
	preds map[string]float64
	err   error
}

func (c *fakeClassifier) Classify(_ context.Context, _ string, _ []byte) (map[string]float64, error) {
	return c.preds, c.err
}

type fakeImageStore struct {
	url    string
	err    error
	prefix string
	body   []byte
}

func (s *fakeImageStore) Upload(_ context.Context, prefix, filename, _ string, body io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.prefix = prefix
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.body = b
	return s.url + "/" + prefix + "/" + filename, nil
}
