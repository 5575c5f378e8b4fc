package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/go-go-golems/agentverse/pkg/events"
	"github.com/go-go-golems/agentverse/pkg/flows"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type generatorFunc func(ctx context.Context, in *flows.GenerateCodeInput) (*flows.GenerateCodeOutput, error)

func (f generatorFunc) GenerateCode(ctx context.Context, in *flows.GenerateCodeInput) (*flows.GenerateCodeOutput, error) {
	return f(ctx, in)
}

func fixedGenerator(code string) CodeGenerator {
	return generatorFunc(func(ctx context.Context, in *flows.GenerateCodeInput) (*flows.GenerateCodeOutput, error) {
		return &flows.GenerateCodeOutput{Code: code}, nil
	})
}

func TestNewFromQuery(t *testing.T) {
	s, err := NewFromQuery("code=a+%26+b%3D1", nil)
	require.NoError(t, err)
	assert.Equal(t, "a & b=1", s.Code())

	s, err = NewFromQuery("?other=1", nil)
	require.NoError(t, err)
	assert.Equal(t, "", s.Code())
}

func TestGenerateReplacesCode(t *testing.T) {
	var seen *flows.GenerateCodeInput
	gen := generatorFunc(func(ctx context.Context, in *flows.GenerateCodeInput) (*flows.GenerateCodeOutput, error) {
		seen = in
		return &flows.GenerateCodeOutput{Code: "<Button/>"}, nil
	})
	s, err := NewFromQuery("code=old", gen)
	require.NoError(t, err)

	code, err := s.Generate(context.Background(), "a button")
	require.NoError(t, err)
	assert.Equal(t, "<Button/>", code)
	assert.Equal(t, "<Button/>", s.Code())
	assert.Equal(t, "a button", seen.Prompt)
	assert.False(t, s.Generating())
}

func TestGenerateFailureLeavesCodeEmpty(t *testing.T) {
	var toasts []events.Toast
	gen := generatorFunc(func(ctx context.Context, in *flows.GenerateCodeInput) (*flows.GenerateCodeOutput, error) {
		return nil, errors.New("model down")
	})
	s := New(gen, WithNotifier(events.NotifierFunc(func(t events.Toast) { toasts = append(toasts, t) })))
	s.SetCode("old")

	_, err := s.Generate(context.Background(), "anything")
	require.Error(t, err)
	assert.Equal(t, "", s.Code())
	require.Len(t, toasts, 1)
	assert.Equal(t, events.ToastVariantDestructive, toasts[0].Variant)
}

func TestGenerateRejectsBlankPrompt(t *testing.T) {
	s := New(fixedGenerator("x"))
	s.SetCode("keep")
	_, err := s.Generate(context.Background(), " \n")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Equal(t, "keep", s.Code())
}

func TestGenerateRejectsConcurrentCall(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	gen := generatorFunc(func(ctx context.Context, in *flows.GenerateCodeInput) (*flows.GenerateCodeOutput, error) {
		close(entered)
		<-release
		return &flows.GenerateCodeOutput{Code: "done"}, nil
	})
	s := New(gen)

	errc := make(chan error, 1)
	go func() {
		_, err := s.Generate(context.Background(), "first")
		errc <- err
	}()
	<-entered
	_, err := s.Generate(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-errc)
	assert.Equal(t, "done", s.Code())
}

func TestCopySetsAndResetsFlag(t *testing.T) {
	var clip string
	s := New(fixedGenerator("x"),
		WithClipboard(func(v string) error { clip = v; return nil }),
		WithCopyReset(20*time.Millisecond),
	)
	defer s.Close()

	assert.ErrorIs(t, s.Copy(), ErrNothingToCopy)
	assert.False(t, s.Copied())

	s.SetCode("fmt.Println(1)")
	require.NoError(t, s.Copy())
	assert.Equal(t, "fmt.Println(1)", clip)
	assert.True(t, s.Copied())

	require.Eventually(t, func() bool { return !s.Copied() }, time.Second, 5*time.Millisecond)
}

func TestCopyClipboardFailure(t *testing.T) {
	s := New(fixedGenerator("x"), WithClipboard(func(string) error { return errors.New("no clipboard") }))
	s.SetCode("x")
	assert.Error(t, s.Copy())
	assert.False(t, s.Copied())
}

func TestGenerateClearsCopiedFlag(t *testing.T) {
	s := New(fixedGenerator("new"), WithClipboard(func(string) error { return nil }), WithCopyReset(time.Hour))
	defer s.Close()
	s.SetCode("old")
	require.NoError(t, s.Copy())
	require.True(t, s.Copied())

	_, err := s.Generate(context.Background(), "again")
	require.NoError(t, err)
	assert.False(t, s.Copied())
}
