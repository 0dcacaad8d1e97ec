package store

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slackemu/emulator/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(dir, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveAndLoadMessage_GlobalScope(t *testing.T) {
	s := newTestStore(t)

	msg := model.Message{Ts: "1.000001", Channel: "C_GENERAL", User: "U_simple", Text: "hello"}
	require.NoError(t, s.SaveMessage(msg, ""))

	loaded, err := s.LoadMessages("anything")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "hello", loaded[0].Text)
}

func TestStore_LoadMessages_ScopeIsolation(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveMessage(model.Message{Ts: "1.1", Channel: "D_bota", User: "U_botA", Text: "hi a"}, "bota"))
	require.NoError(t, s.SaveMessage(model.Message{Ts: "1.2", Channel: "D_botb", User: "U_botB", Text: "hi b"}, "botb"))
	require.NoError(t, s.SaveMessage(model.Message{Ts: "1.3", Channel: "C_GENERAL", User: "U_simple", Text: "global"}, ""))

	loaded, err := s.LoadMessages("bota")
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	texts := []string{loaded[0].Text, loaded[1].Text}
	assert.Contains(t, texts, "hi a")
	assert.Contains(t, texts, "global")
	assert.NotContains(t, texts, "hi b")
}

func TestStore_SaveFile_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	f := model.File{ID: "F123", Name: "a.png", Mimetype: "image/png", Size: 4, User: "U_simple"}
	require.NoError(t, s.SaveFile(f, []byte{1, 2, 3, 4}, ""))

	data, err := s.ReadFileBytes("F123")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)

	loaded, err := s.LoadFile("F123")
	require.NoError(t, err)
	assert.Equal(t, "image/png", loaded.Mimetype)
}

func TestStore_SaveFile_SanitizesPathTraversal(t *testing.T) {
	s := newTestStore(t)

	f := model.File{ID: "../../etc/passwd", Name: "x", Mimetype: "text/plain", Size: 1, User: "U_simple"}
	require.NoError(t, s.SaveFile(f, []byte{9}, ""))

	assert.Equal(t, filepath.Join(s.uploadsDir, "passwd"), s.blobPath(f.ID))
}

func TestStore_ClearChannel(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveMessage(model.Message{Ts: "1.1", Channel: "C_GENERAL", User: "U_simple", Text: "a"}, ""))
	require.NoError(t, s.SaveMessage(model.Message{Ts: "1.2", Channel: "C_SHOWCASE", User: "U_simple", Text: "b"}, ""))

	require.NoError(t, s.ClearChannel("C_GENERAL"))

	loaded, err := s.LoadMessages("")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "C_SHOWCASE", loaded[0].Channel)
}

func TestStore_DeleteMessage_NotFoundIsNoop(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.DeleteMessage("does-not-exist"))
}
