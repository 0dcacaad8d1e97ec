package state

import (
	"path/filepath"
	"time"

	"github.com/slackemu/emulator/internal/apierr"
	"github.com/slackemu/emulator/internal/model"
)

const uploadTTL = 5 * time.Minute

// NewPendingUpload reserves a file id for an upcoming upload.
func (s *State) NewPendingUpload(filename string, length int) *model.PendingUpload {
	pu := &model.PendingUpload{
		FileID:    "F" + newID(""),
		Filename:  filename,
		Length:    length,
		CreatedAt: time.Now().UnixMilli(),
	}
	s.mu.Lock()
	s.uploads[pu.FileID] = pu
	s.mu.Unlock()
	return pu
}

// FillPendingUpload stores the uploaded bytes against a reservation.
func (s *State) FillPendingUpload(fileID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pu, ok := s.uploads[fileID]
	if !ok {
		return apierr.New(apierr.FileNotFound, "no pending upload for file id")
	}
	if time.Since(time.UnixMilli(pu.CreatedAt)) > uploadTTL {
		delete(s.uploads, fileID)
		return apierr.New(apierr.FileNotFound, "pending upload expired")
	}
	pu.Data = data
	return nil
}

// CompleteUpload consumes a filled pending upload, writes the file record,
// persists it, and returns it. The caller emits file_shared.
func (s *State) CompleteUpload(fileID, user string, channels []string) (*model.File, []byte, error) {
	s.mu.Lock()
	pu, ok := s.uploads[fileID]
	if !ok {
		s.mu.Unlock()
		return nil, nil, apierr.New(apierr.FileNotFound, "no pending upload for file id")
	}
	delete(s.uploads, fileID)
	data := pu.Data
	s.mu.Unlock()

	f := &model.File{
		ID:       fileID,
		Name:     filepath.Base(pu.Filename),
		Title:    pu.Filename,
		Mimetype: inferMimetype(pu.Filename),
		Size:     len(data),
		User:     user,
		Channels: channels,
	}

	s.mu.Lock()
	s.files[f.ID] = f
	st := s.store
	scope := ""
	if len(channels) > 0 {
		scope = s.scopeFor(channels[0])
	}
	s.mu.Unlock()

	if st != nil {
		if err := st.SaveFile(*f, data, scope); err != nil {
			s.logger.Warn().Err(err).Str("file_id", f.ID).Msg("persist file failed")
		}
	}
	return f, data, nil
}

// GetFile returns file metadata by id.
func (s *State) GetFile(id string) (*model.File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return nil, false
	}
	cp := *f
	return &cp, true
}

// ReadFileBytes returns the raw bytes for a file, reading lazily from disk.
func (s *State) ReadFileBytes(id string) ([]byte, error) {
	s.mu.Lock()
	_, ok := s.files[id]
	st := s.store
	s.mu.Unlock()
	if !ok {
		return nil, apierr.New(apierr.FileNotFound, "file not found")
	}
	if st == nil {
		return nil, apierr.New(apierr.FileNotFound, "persistence disabled")
	}
	data, err := st.ReadFileBytes(id)
	if err != nil {
		return nil, apierr.New(apierr.FileNotFound, "file not found")
	}
	return data, nil
}

// SetFileExpanded updates a file's isExpanded flag.
func (s *State) SetFileExpanded(id string, expanded bool) error {
	s.mu.Lock()
	f, ok := s.files[id]
	if !ok {
		s.mu.Unlock()
		return apierr.New(apierr.FileNotFound, "file not found")
	}
	f.IsExpanded = expanded
	st := s.store
	s.mu.Unlock()

	if st != nil {
		if err := st.SetFileExpanded(id, expanded); err != nil {
			s.logger.Warn().Err(err).Str("file_id", id).Msg("persist file flag failed")
		}
	}
	return nil
}

// AddFileDirect registers a file record for the multipart upload path
// (files.uploadV2), bypassing the pending-upload reservation.
func (s *State) AddFileDirect(f model.File, data []byte) *model.File {
	s.mu.Lock()
	s.files[f.ID] = &f
	st := s.store
	scope := ""
	if len(f.Channels) > 0 {
		scope = s.scopeFor(f.Channels[0])
	}
	s.mu.Unlock()

	if st != nil {
		if err := st.SaveFile(f, data, scope); err != nil {
			s.logger.Warn().Err(err).Str("file_id", f.ID).Msg("persist file failed")
		}
	}
	cp := f
	return &cp
}

func inferMimetype(filename string) string {
	switch filepath.Ext(filename) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
