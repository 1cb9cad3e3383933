package localfs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/filing-pro/internal/infrastructure/localfs"
	"github.com/tu-usuario/filing-pro/pkg/logger"
)

func TestTransport_UploadListDownloadExists(t *testing.T) {
	tr := localfs.New(t.TempDir(), logger.Nop())

	session, err := tr.Connect(context.Background())
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Upload("/submissions", "batch.xml", []byte("<doc/>")))

	names, err := session.List("/submissions")
	require.NoError(t, err)
	assert.Equal(t, []string{"batch.xml"}, names)

	data, err := session.Download("/submissions", "batch.xml")
	require.NoError(t, err)
	assert.Equal(t, []byte("<doc/>"), data)

	ok, err := session.Exists("/submissions", "batch.xml")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = session.Exists("/submissions", "other.xml")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTransport_ListMissingDirIsEmpty(t *testing.T) {
	tr := localfs.New(t.TempDir(), logger.Nop())
	session, err := tr.Connect(context.Background())
	require.NoError(t, err)
	defer session.Close()

	names, err := session.List("/acknowledgments")
	require.NoError(t, err)
	assert.Empty(t, names, "an endpoint directory that does not exist yet is just empty")
}
