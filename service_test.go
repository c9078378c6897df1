package carbonchat

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ashton-krac/carbonchat/corpus"
	"github.com/ashton-krac/carbonchat/llm"
	"github.com/ashton-krac/carbonchat/persistence/chromem"
	"github.com/ashton-krac/carbonchat/vector"
)

// letterEmbedding is a deterministic local stand-in for the remote embedding
// service: normalized letter frequencies. Verbatim-equal texts get identical
// vectors, so self-similarity is maximal.
func letterEmbedding(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}

	if norm == 0 {
		v[0] = 1
		return v, nil
	}

	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}

	return v, nil
}

type stubGenerator struct {
	system    string
	user      string
	fragments []llm.Fragment
}

func (g *stubGenerator) Stream(ctx context.Context, system, user string) (<-chan llm.Fragment, error) {
	g.system = system
	g.user = user

	out := make(chan llm.Fragment, len(g.fragments))
	for _, fragment := range g.fragments {
		out <- fragment
	}
	close(out)

	return out, nil
}

// stalledGenerator never completes the stream handshake.
type stalledGenerator struct{}

func (g *stalledGenerator) Stream(ctx context.Context, system, user string) (<-chan llm.Fragment, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// slowGenerator completes the handshake at once but delivers its fragment
// only well after the configured timeout has passed.
type slowGenerator struct{}

func (g *slowGenerator) Stream(ctx context.Context, system, user string) (<-chan llm.Fragment, error) {
	out := make(chan llm.Fragment, 1)

	go func() {
		defer close(out)

		select {
		case <-time.After(80 * time.Millisecond):
			out <- llm.Fragment{Text: "late but complete"}
		case <-ctx.Done():
			out <- llm.Fragment{Err: ctx.Err()}
		}
	}()

	return out, nil
}

type failingCollection struct {
	vector.Collection
	findErr error
}

func (c *failingCollection) FindDocument(ctx context.Context, id string) (vector.Document, error) {
	return vector.Document{}, c.findErr
}

type failingVectorDB struct {
	collection vector.Collection
}

func (db *failingVectorDB) Collection(name string) (vector.Collection, error) {
	return db.collection, nil
}

func (db *failingVectorDB) DeleteCollection(name string) error {
	return nil
}

func testCorpus() []corpus.Document {
	return []corpus.Document{
		{
			Title:   "Buttons",
			URL:     "u1",
			Content: "Primary button color is #0f62fe.",
		},
		{
			Title:   "Grid",
			URL:     "u2",
			Content: "The grid uses a sixteen column layout.",
		},
		{
			Title:   "Typography",
			URL:     "u3",
			Content: "IBM Plex Sans is the default typeface.",
		},
		{
			Title:   "Empty",
			URL:     "u4",
			Content: "   ",
		},
	}
}

type carbonChatTestSuite struct {
	suite.Suite
	ctx context.Context
	svc Service
	gen *stubGenerator
	db  vector.VectorDB
	cfg Config
}

func (suite *carbonChatTestSuite) SetupSuite() {
	ctx := context.Background()

	cfg := Config{
		TopK: 2,
		Vector: vector.Config{
			Collection: "carbon-docs",
		},
	}
	cfg.ApplyDefaults()

	db, err := chromem.NewChromemVectorDB(cfg.Vector, letterEmbedding)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	gen := &stubGenerator{
		fragments: []llm.Fragment{
			{Text: "Primary buttons use "},
			{Text: "#0f62fe."},
		},
	}

	svc, err := NewService(cfg, db, gen)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	summary, err := svc.IndexCorpus(ctx, testCorpus())
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal(3, summary.Documents)
	suite.Equal(3, summary.Chunks)
	suite.Equal(1, summary.Skipped)

	suite.ctx = ctx
	suite.svc = svc
	suite.gen = gen
	suite.db = db
	suite.cfg = cfg
}

func (suite *carbonChatTestSuite) TestIndexCorpusIdempotent() {
	summary, err := suite.svc.IndexCorpus(suite.ctx, testCorpus())
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal(3, summary.Documents)
	suite.Equal(0, summary.Chunks, "re-running over the same corpus must not re-embed")
	suite.Equal(1, summary.Skipped)
}

func (suite *carbonChatTestSuite) TestSearch() {
	docs, err := suite.svc.Search(suite.ctx, "What color are primary buttons?")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Len(docs, 2)
	suite.GreaterOrEqual(docs[0].Similarity, docs[1].Similarity)
}

func (suite *carbonChatTestSuite) TestSearchReturnsAllWhenKExceedsCount() {
	docs, err := suite.svc.Search(suite.ctx, "layout", 10)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Len(docs, 3)
}

func (suite *carbonChatTestSuite) TestSearchVerbatimQuery() {
	docs, err := suite.svc.Search(suite.ctx, "Primary button color is #0f62fe.", 1)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Len(docs, 1)
	suite.Equal("Buttons", docs[0].Metadata[MetadataTitle])
	suite.Equal("u1", docs[0].Metadata[MetadataURL])
}

func (suite *carbonChatTestSuite) TestSearchEmptyQuery() {
	_, err := suite.svc.Search(suite.ctx, "  ")
	suite.ErrorIs(err, ErrEmptyQuestion)
}

func (suite *carbonChatTestSuite) TestAsk() {
	fragments, err := suite.svc.Ask(suite.ctx, "What color are primary buttons?")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	var b strings.Builder
	for fragment := range fragments {
		suite.NoError(fragment.Err)
		b.WriteString(fragment.Text)
	}

	suite.Equal("Primary buttons use #0f62fe.", b.String())

	suite.Contains(suite.gen.system, "ONLY the provided documentation")
	suite.Contains(suite.gen.user, "From Buttons:")
	suite.Contains(suite.gen.user, "Question: What color are primary buttons?")
}

func (suite *carbonChatTestSuite) TestAskInterrupted() {
	saved := suite.gen.fragments
	defer func() { suite.gen.fragments = saved }()

	suite.gen.fragments = []llm.Fragment{
		{Text: "Primary "},
		{Err: context.DeadlineExceeded},
	}

	fragments, err := suite.svc.Ask(suite.ctx, "What color are primary buttons?")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	var (
		b         strings.Builder
		streamErr error
	)

	for fragment := range fragments {
		if fragment.Err != nil {
			streamErr = fragment.Err
			continue
		}

		b.WriteString(fragment.Text)
	}

	suite.Equal("Primary ", b.String(), "partial output before the failure is kept")
	suite.ErrorIs(streamErr, context.DeadlineExceeded)
}

func (suite *carbonChatTestSuite) TestAskHandshakeTimeout() {
	cfg := suite.cfg
	cfg.Timeout = Duration(20 * time.Millisecond)

	svc, err := NewService(cfg, suite.db, &stalledGenerator{})
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	_, err = svc.Ask(suite.ctx, "What color are primary buttons?")
	suite.ErrorIs(err, context.Canceled, "a stalled handshake must be aborted by the configured timeout")
}

func (suite *carbonChatTestSuite) TestAskStreamOutlivesTimeout() {
	cfg := suite.cfg
	cfg.Timeout = Duration(20 * time.Millisecond)

	svc, err := NewService(cfg, suite.db, &slowGenerator{})
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	fragments, err := svc.Ask(suite.ctx, "What color are primary buttons?")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	var b strings.Builder
	for fragment := range fragments {
		suite.NoError(fragment.Err, "an established stream must not be cut off by the handshake timeout")
		b.WriteString(fragment.Text)
	}

	suite.Equal("late but complete", b.String())
}

func (suite *carbonChatTestSuite) TestIndexCorpusStoreReadFailure() {
	readErr := errors.New("read failed")
	db := &failingVectorDB{
		collection: &failingCollection{findErr: readErr},
	}

	svc, err := NewService(suite.cfg, db, suite.gen)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	_, err = svc.IndexCorpus(suite.ctx, testCorpus())
	suite.ErrorIs(err, readErr, "a store read failure must not be treated as a missing record")
}

func (suite *carbonChatTestSuite) TestAskEmptyStore() {
	cfg := suite.cfg
	cfg.Vector.Collection = "empty"

	svc, err := NewService(cfg, suite.db, suite.gen)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	_, err = svc.Ask(suite.ctx, "What color are primary buttons?")
	suite.ErrorIs(err, ErrNoDocumentsFound)
}

func (suite *carbonChatTestSuite) TearDownSuite() {
	if suite.svc != nil {
		suite.svc.Close()
	}

	suite.ctx = nil
	suite.svc = nil
}

func TestCarbonChatTestSuite(t *testing.T) {
	suite.Run(t, new(carbonChatTestSuite))
}
