package scores

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// ArchiveRow is one result as stored in the parquet archive.
type ArchiveRow struct {
	UserID    string `parquet:"user_id,dict"`
	GameID    string `parquet:"game_id,dict"`
	Score     int32  `parquet:"score"`
	CreatedAt string `parquet:"created_at"`
}

var errArchiveClosed = errors.New("score archive is closed")

// ParquetSink appends results to a zstd-compressed parquet batch. The batch is
// written under dir/tmp and moved into dir on Close.
type ParquetSink struct {
	mu      sync.Mutex
	tmpPath string
	outPath string
	file    *os.File
	writer  *parquet.GenericWriter[ArchiveRow]
	rows    int
}

func NewParquetSink(dir string) (*ParquetSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive dir is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	tmpDir := filepath.Join(abs, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("scores_%d.parquet", time.Now().UnixNano())
	tmpPath := filepath.Join(tmpDir, name)
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}
	w := parquet.NewGenericWriter[ArchiveRow](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", "score_row_v1")

	return &ParquetSink{
		tmpPath: tmpPath,
		outPath: filepath.Join(abs, name),
		file:    f,
		writer:  w,
	}, nil
}

// OutPath is where the batch lands once closed.
func (s *ParquetSink) OutPath() string { return s.outPath }

func (s *ParquetSink) Submit(_ context.Context, r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer == nil {
		return errArchiveClosed
	}
	row := ArchiveRow{
		UserID:    r.UserID,
		GameID:    r.GameID,
		Score:     int32(r.Score),
		CreatedAt: r.CreatedAt,
	}
	if _, err := s.writer.Write([]ArchiveRow{row}); err != nil {
		return fmt.Errorf("write score row: %w", err)
	}
	s.rows++
	return nil
}

// Close finalizes the batch. An empty batch is discarded.
func (s *ParquetSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer == nil && s.file == nil {
		return nil
	}

	closeErr := s.writer.Close()
	s.writer = nil
	_ = s.file.Sync()
	fileErr := s.file.Close()
	s.file = nil
	if closeErr != nil {
		return fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		return fmt.Errorf("close parquet file: %w", fileErr)
	}

	if s.rows == 0 {
		_ = os.Remove(s.tmpPath)
		return nil
	}
	if err := os.Rename(s.tmpPath, s.outPath); err != nil {
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}
