package generation

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/docuverse/studio/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests (required by client and recovery)
	_, err := logger.Init("info", "json")
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Generate(ctx context.Context, jobKey string, input json.RawMessage, tier Tier) (*GenerateResult, error) {
	args := m.Called(ctx, jobKey, input, tier)
	if v := args.Get(0); v != nil {
		return v.(*GenerateResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockEngine) Status(ctx context.Context, jobKey string) (*JobStatus, error) {
	args := m.Called(ctx, jobKey)
	if v := args.Get(0); v != nil {
		return v.(*JobStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockEngine) Progress(ctx context.Context, jobKey string) (*JobProgress, error) {
	args := m.Called(ctx, jobKey)
	if v := args.Get(0); v != nil {
		return v.(*JobProgress), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestClientGenerate(t *testing.T) {
	input := json.RawMessage(`{"project_name":"Nebula Core"}`)

	t.Run("success at requested tier", func(t *testing.T) {
		eng := &mockEngine{}
		eng.On("Generate", mock.Anything, "job-1", input, TierQuick).
			Return(&GenerateResult{DownloadURL: "/files/doc.docx", Mode: "quick"}, nil).Once()

		out, err := NewClient(eng, time.Minute).Generate(context.Background(), "job-1", input, TierQuick)
		require.NoError(t, err)
		require.Equal(t, "/files/doc.docx", out.Location)
		require.Equal(t, TierQuick, out.Tier)
		mock.AssertExpectationsForObjects(t, eng)
	})

	t.Run("quick engine failure falls back to instant once", func(t *testing.T) {
		eng := &mockEngine{}
		eng.On("Generate", mock.Anything, "job-1", input, TierQuick).
			Return(nil, &EngineError{Tier: TierQuick, Status: 500, Detail: "worker crashed"}).Once()
		eng.On("Generate", mock.Anything, "job-1", input, TierInstant).
			Return(&GenerateResult{DownloadURL: "/files/doc-instant.docx", Mode: "instant"}, nil).Once()

		out, err := NewClient(eng, time.Minute).Generate(context.Background(), "job-1", input, TierQuick)
		require.NoError(t, err)
		require.Equal(t, TierInstant, out.Tier)
		require.Equal(t, "/files/doc-instant.docx", out.Location)
		mock.AssertExpectationsForObjects(t, eng)
	})

	t.Run("fallback failure is returned without another retry", func(t *testing.T) {
		eng := &mockEngine{}
		eng.On("Generate", mock.Anything, "job-1", input, TierQuick).
			Return(nil, &EngineError{Tier: TierQuick, Status: 500}).Once()
		eng.On("Generate", mock.Anything, "job-1", input, TierInstant).
			Return(nil, &EngineError{Tier: TierInstant, Status: 500}).Once()

		_, err := NewClient(eng, time.Minute).Generate(context.Background(), "job-1", input, TierQuick)
		require.Error(t, err)
		var engineErr *EngineError
		require.ErrorAs(t, err, &engineErr)
		require.Equal(t, TierInstant, engineErr.Tier)
		mock.AssertExpectationsForObjects(t, eng)
	})

	t.Run("full tier failure does not fall back", func(t *testing.T) {
		eng := &mockEngine{}
		eng.On("Generate", mock.Anything, "job-1", input, TierFull).
			Return(nil, &EngineError{Tier: TierFull, Status: 502}).Once()

		_, err := NewClient(eng, time.Minute).Generate(context.Background(), "job-1", input, TierFull)
		require.Error(t, err)
		mock.AssertExpectationsForObjects(t, eng)
	})

	t.Run("deadline maps to ErrTimeout and is not retried", func(t *testing.T) {
		eng := &mockEngine{}
		eng.On("Generate", mock.Anything, "job-1", input, TierQuick).
			Return(nil, context.DeadlineExceeded).Once()

		_, err := NewClient(eng, time.Minute).Generate(context.Background(), "job-1", input, TierQuick)
		require.ErrorIs(t, err, ErrTimeout)
		mock.AssertExpectationsForObjects(t, eng)
	})

	t.Run("success without download location is ErrNoArtifact", func(t *testing.T) {
		eng := &mockEngine{}
		eng.On("Generate", mock.Anything, "job-1", input, TierFull).
			Return(&GenerateResult{Mode: "full"}, nil).Once()

		_, err := NewClient(eng, time.Minute).Generate(context.Background(), "job-1", input, TierFull)
		require.ErrorIs(t, err, ErrNoArtifact)
		mock.AssertExpectationsForObjects(t, eng)
	})

	t.Run("engine-reported mode overrides requested tier", func(t *testing.T) {
		eng := &mockEngine{}
		eng.On("Generate", mock.Anything, "job-1", input, TierQuick).
			Return(&GenerateResult{DownloadURL: "/files/doc.docx", Mode: "instant"}, nil).Once()

		out, err := NewClient(eng, time.Minute).Generate(context.Background(), "job-1", input, TierQuick)
		require.NoError(t, err)
		require.Equal(t, TierInstant, out.Tier)
		mock.AssertExpectationsForObjects(t, eng)
	})
}
