package docstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// Store 文档/照片存储接口。
// 核心只保存返回的引用串，不关心字节落在哪里。
type Store interface {
	Save(ctx context.Context, name string, data []byte) (ref string, err error)
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// Local 本地目录实现：时间戳 + 清洗后的文件名作为引用。
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("docstore dir is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create docstore dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Save(ctx context.Context, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty file")
	}
	safe := unsafeChars.ReplaceAllString(name, "_")
	if safe == "" {
		safe = "file"
	}
	ref := fmt.Sprintf("%d_%s", time.Now().UnixNano(), safe)
	if err := os.WriteFile(filepath.Join(l.dir, ref), data, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return ref, nil
}
