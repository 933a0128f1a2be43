package fsadapter

import (
	"context"
	"os"
	"path/filepath"

	"github.com/yeseh/cortex/internal/cortexerr"
	"github.com/yeseh/cortex/internal/model"
)

type memoryCapability struct {
	a *FSAdapter
}

const memoryExt = ".md"

func (m *memoryCapability) filePath(path model.MemoryPath) (string, error) {
	segs := make([]string, 0, path.Category().Depth())
	for _, s := range path.Category().Segments() {
		segs = append(segs, s.String())
	}
	dir, err := m.a.categoryDir(segs)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, path.Leaf().String()+memoryExt), nil
}

func (m *memoryCapability) Read(ctx context.Context, path model.MemoryPath) (*model.Memory, error) {
	fp, err := m.filePath(path)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, cortexerr.Wrap(cortexerr.StorageError, "failed to read memory file", err).WithPath(path.String())
	}

	meta, body, err := parseMemory(raw)
	if err != nil {
		return nil, err
	}

	return &model.Memory{Path: path, Metadata: meta, Content: body}, nil
}

func (m *memoryCapability) Write(ctx context.Context, mem model.Memory) error {
	fp, err := m.filePath(mem.Path)
	if err != nil {
		return err
	}

	data, err := serializeMemory(mem)
	if err != nil {
		return err
	}

	if err := atomicWriteFile(fp, data, 0o644); err != nil {
		return cortexerr.Wrap(cortexerr.StorageError, "failed to write memory file", err).WithPath(mem.Path.String())
	}
	return nil
}

func (m *memoryCapability) Remove(ctx context.Context, path model.MemoryPath) error {
	fp, err := m.filePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(fp); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return cortexerr.Wrap(cortexerr.StorageError, "failed to remove memory file", err).WithPath(path.String())
	}
	return nil
}

func (m *memoryCapability) Move(ctx context.Context, from, to model.MemoryPath) error {
	fromPath, err := m.filePath(from)
	if err != nil {
		return err
	}
	toPath, err := m.filePath(to)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(toPath), 0o755); err != nil {
		return cortexerr.Wrap(cortexerr.StorageError, "failed to create destination category directory", err).WithPath(to.String())
	}
	if err := os.Rename(fromPath, toPath); err != nil {
		return cortexerr.Wrap(cortexerr.StorageError, "failed to move memory file", err).WithPath(from.String())
	}
	return nil
}

func (m *memoryCapability) ListPathsUnder(ctx context.Context, scope model.CategoryPath) ([]model.MemoryPath, error) {
	root, err := m.a.storeRoot()
	if err != nil {
		return nil, err
	}

	segs := make([]string, 0, scope.Depth())
	for _, s := range scope.Segments() {
		segs = append(segs, s.String())
	}
	scopeDir := filepath.Join(append([]string{root}, segs...)...)

	var out []model.MemoryPath
	err = filepath.WalkDir(scopeDir, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) && p == scopeDir {
				return nil
			}
			return walkErr
		}
		if d.IsDir() || filepath.Ext(p) != memoryExt {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = rel[:len(rel)-len(memoryExt)]
		mp, err := model.ParseMemoryPath(filepath.ToSlash(rel))
		if err != nil {
			return nil // skip files that are not valid memory paths
		}
		out = append(out, mp)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, cortexerr.Wrap(cortexerr.StorageError, "failed to list memories under scope", err).WithPath(scope.String())
	}
	return out, nil
}
