package job

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSyncer struct {
	calls int
	err   error
}

func (f *fakeSyncer) ResyncMirror(ctx context.Context) (int, error) {
	f.calls++
	return 3, f.err
}

func TestMirrorResyncJob(t *testing.T) {
	s := &fakeSyncer{}
	j := NewMirrorResyncJob(s)
	require.Equal(t, "mirror_resync", j.Name())
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, 1, s.calls)

	s.err = errors.New("db locked")
	require.ErrorIs(t, j.Run(context.Background()), s.err)

	require.NoError(t, NewMirrorResyncJob(nil).Run(context.Background()))
}
