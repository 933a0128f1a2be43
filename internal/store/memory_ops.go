package store

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/yeseh/cortex/internal/cortexerr"
	"github.com/yeseh/cortex/internal/model"
	"github.com/yeseh/cortex/internal/policy"
)

// CreateMemory validates permissions and content length, applies the
// default-TTL ceiling, and writes a new memory (spec.md §4.5
// createMemory). Fails MEMORY_ALREADY_EXISTS if path already holds a
// memory.
func (e *Engine) CreateMemory(ctx context.Context, rawPath string, in CreateMemoryInput, now time.Time) (*model.Memory, error) {
	path, err := model.ParseMemoryPath(rawPath)
	if err != nil {
		return nil, err
	}

	def, err := e.definition(ctx)
	if err != nil {
		return nil, err
	}
	eff := policy.Resolve(def, path.Category())

	if err := policy.CheckCreatePermission(eff, path); err != nil {
		return nil, err
	}
	if err := policy.ValidateMaxContentLength(eff, path, in.Content); err != nil {
		return nil, err
	}

	existing, err := e.adapter.Memories().Read(ctx, path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, cortexerr.New(cortexerr.MemoryAlreadyExists, "a memory already exists at this path").WithPath(path.String())
	}

	expiresAt := policy.ApplyDefaultTTLCeiling(eff, in.ExpiresAt, now)

	mem := model.Memory{
		Path: path,
		Metadata: model.MemoryMetadata{
			CreatedAt: now,
			UpdatedAt: now,
			Tags:      in.Tags,
			Source:    model.Source(in.Source),
			ExpiresAt: expiresAt,
			Citations: in.Citations,
			Summary:   in.Summary,
		},
		Content: in.Content,
	}

	if err := e.adapter.Memories().Write(ctx, mem); err != nil {
		return nil, err
	}
	if err := e.index.UpdateAfterMemoryWrite(ctx, mem); err != nil {
		e.log.Warn("index update failed after create; memory write stands", zap.String("path", path.String()), zap.Error(err))
		return nil, err
	}
	return &mem, nil
}

// GetMemory reads a memory, returning MEMORY_NOT_FOUND for an absent
// path or an expired memory when includeExpired is false (spec.md §4.5
// getMemory).
func (e *Engine) GetMemory(ctx context.Context, rawPath string, includeExpired bool, now time.Time) (*model.Memory, error) {
	path, err := model.ParseMemoryPath(rawPath)
	if err != nil {
		return nil, err
	}

	mem, err := e.adapter.Memories().Read(ctx, path)
	if err != nil {
		return nil, err
	}
	if mem == nil {
		return nil, cortexerr.New(cortexerr.MemoryNotFound, "no memory exists at this path").WithPath(path.String())
	}
	if !includeExpired && mem.IsExpired(now) {
		return nil, cortexerr.New(cortexerr.MemoryNotFound, "memory has expired").WithPath(path.String())
	}
	return mem, nil
}

// UpdateMemory merges in onto the existing memory at rawPath and bumps
// updatedAt to now (spec.md §4.5 updateMemory).
func (e *Engine) UpdateMemory(ctx context.Context, rawPath string, in UpdateMemoryInput, now time.Time) (*model.Memory, error) {
	path, err := model.ParseMemoryPath(rawPath)
	if err != nil {
		return nil, err
	}

	def, err := e.definition(ctx)
	if err != nil {
		return nil, err
	}
	eff := policy.Resolve(def, path.Category())
	if err := policy.CheckUpdatePermission(eff, path); err != nil {
		return nil, err
	}

	mem, err := e.adapter.Memories().Read(ctx, path)
	if err != nil {
		return nil, err
	}
	if mem == nil {
		return nil, cortexerr.New(cortexerr.MemoryNotFound, "no memory exists at this path").WithPath(path.String())
	}

	if in.Content != nil {
		if err := policy.ValidateMaxContentLength(eff, path, *in.Content); err != nil {
			return nil, err
		}
		mem.Content = *in.Content
	}
	if in.Tags != nil {
		mem.Metadata.Tags = in.Tags
	}
	if in.Citations != nil {
		mem.Metadata.Citations = in.Citations
	}
	if in.ExpiresAt != nil {
		mem.Metadata.ExpiresAt = in.ExpiresAt.Value
	}
	if in.Summary != nil {
		mem.Metadata.Summary = in.Summary.Value
	}
	mem.Metadata.UpdatedAt = now

	if err := e.adapter.Memories().Write(ctx, *mem); err != nil {
		return nil, err
	}
	if err := e.index.UpdateAfterMemoryWrite(ctx, *mem); err != nil {
		e.log.Warn("index update failed after update; memory write stands", zap.String("path", path.String()), zap.Error(err))
		return nil, err
	}
	return mem, nil
}

// MoveMemory renames a memory from one path to another, preserving
// createdAt and leaving updatedAt untouched (spec.md §4.5 moveMemory).
func (e *Engine) MoveMemory(ctx context.Context, rawFrom, rawTo string) (*model.Memory, error) {
	from, err := model.ParseMemoryPath(rawFrom)
	if err != nil {
		return nil, err
	}
	to, err := model.ParseMemoryPath(rawTo)
	if err != nil {
		return nil, err
	}

	source, err := e.adapter.Memories().Read(ctx, from)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, cortexerr.New(cortexerr.MemoryNotFound, "no memory exists at the source path").WithPath(from.String())
	}
	dest, err := e.adapter.Memories().Read(ctx, to)
	if err != nil {
		return nil, err
	}
	if dest != nil {
		return nil, cortexerr.New(cortexerr.DestinationExists, "a memory already exists at the destination path").WithPath(to.String())
	}

	if err := e.adapter.Memories().Move(ctx, from, to); err != nil {
		return nil, err
	}
	if err := e.index.UpdateAfterMemoryMove(ctx, from, to); err != nil {
		e.log.Warn("index update failed after move; memory move stands",
			zap.String("from", from.String()), zap.String("to", to.String()), zap.Error(err))
		return nil, err
	}

	moved := *source
	moved.Path = to
	return &moved, nil
}

// RemoveMemory deletes the memory at rawPath (spec.md §4.5
// removeMemory).
func (e *Engine) RemoveMemory(ctx context.Context, rawPath string) error {
	path, err := model.ParseMemoryPath(rawPath)
	if err != nil {
		return err
	}

	def, err := e.definition(ctx)
	if err != nil {
		return err
	}
	eff := policy.Resolve(def, path.Category())
	if err := policy.CheckDeletePermission(eff, path); err != nil {
		return err
	}

	existing, err := e.adapter.Memories().Read(ctx, path)
	if err != nil {
		return err
	}
	if existing == nil {
		return cortexerr.New(cortexerr.MemoryNotFound, "no memory exists at this path").WithPath(path.String())
	}

	if err := e.adapter.Memories().Remove(ctx, path); err != nil {
		return err
	}
	if err := e.index.UpdateAfterMemoryRemove(ctx, path); err != nil {
		e.log.Warn("index update failed after remove; memory removal stands", zap.String("path", path.String()), zap.Error(err))
		return err
	}
	return nil
}

// ListMemories reads indexes under scope rather than walking memory
// files, filtering expired entries when requested (spec.md §4.5
// listMemories).
func (e *Engine) ListMemories(ctx context.Context, rawScope string, opts ListOptions) ([]model.CategoryMemoryEntry, error) {
	scope, err := model.ParseCategoryPath(rawScope)
	if err != nil {
		return nil, err
	}

	var out []model.CategoryMemoryEntry
	err = e.walkIndexes(ctx, scope, func(idx model.CategoryIndex) error {
		for _, entry := range idx.Memories {
			if !opts.IncludeExpired && entry.ExpiresAt != nil && !entry.ExpiresAt.After(opts.Now) {
				continue
			}
			out = append(out, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path.String() < out[j].Path.String() })
	return out, nil
}

// PruneExpiredMemories deletes every memory under scope whose expiresAt
// has passed, unless dryRun, then triggers a scoped reindex to purge
// orphan entries (spec.md §4.5 pruneExpiredMemories).
func (e *Engine) PruneExpiredMemories(ctx context.Context, rawScope string, opts PruneOptions) ([]model.MemoryPath, error) {
	scope, err := model.ParseCategoryPath(rawScope)
	if err != nil {
		return nil, err
	}

	paths, err := e.adapter.Memories().ListPathsUnder(ctx, scope)
	if err != nil {
		return nil, err
	}

	var pruned []model.MemoryPath
	for _, p := range paths {
		mem, err := e.adapter.Memories().Read(ctx, p)
		if err != nil || mem == nil {
			continue
		}
		if !mem.IsExpired(opts.Now) {
			continue
		}
		pruned = append(pruned, p)
		if opts.DryRun {
			continue
		}
		if err := e.adapter.Memories().Remove(ctx, p); err != nil {
			return nil, err
		}
	}

	if !opts.DryRun && len(pruned) > 0 {
		if _, err := e.index.Reindex(ctx, scope); err != nil {
			return nil, err
		}
	}
	return pruned, nil
}

// GetRecentMemories collects index entries under scope, filters
// expired, sorts by updatedAt descending with a path tiebreak (entries
// missing updatedAt sort last), slices to opts.Limit, and reads each
// selected memory's full content (spec.md §4.5 getRecentMemories).
func (e *Engine) GetRecentMemories(ctx context.Context, rawScope string, opts RecentOptions) ([]RecentMemory, error) {
	scope, err := model.ParseCategoryPath(rawScope)
	if err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	var candidates []model.CategoryMemoryEntry
	err = e.walkIndexes(ctx, scope, func(idx model.CategoryIndex) error {
		for _, entry := range idx.Memories {
			if !opts.IncludeExpired && entry.ExpiresAt != nil && !entry.ExpiresAt.After(opts.Now) {
				continue
			}
			candidates = append(candidates, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.UpdatedAt == nil && b.UpdatedAt == nil {
			return a.Path.String() < b.Path.String()
		}
		if a.UpdatedAt == nil {
			return false
		}
		if b.UpdatedAt == nil {
			return true
		}
		if !a.UpdatedAt.Equal(*b.UpdatedAt) {
			return a.UpdatedAt.After(*b.UpdatedAt)
		}
		return a.Path.String() < b.Path.String()
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]RecentMemory, 0, len(candidates))
	for _, entry := range candidates {
		mem, err := e.adapter.Memories().Read(ctx, entry.Path)
		if err != nil || mem == nil {
			continue
		}
		out = append(out, RecentMemory{
			Path:          entry.Path.String(),
			Content:       mem.Content,
			UpdatedAt:     entry.UpdatedAt,
			TokenEstimate: entry.TokenEstimate,
			Tags:          mem.Metadata.Tags,
		})
	}
	return out, nil
}

// walkIndexes visits scope's own index and every descendant category's
// index reachable through the subcategory tree, in no particular order.
func (e *Engine) walkIndexes(ctx context.Context, scope model.CategoryPath, visit func(model.CategoryIndex) error) error {
	idx, err := e.index.Load(ctx, scope)
	if err != nil {
		return err
	}
	if idx == nil {
		return nil
	}
	if err := visit(*idx); err != nil {
		return err
	}
	for _, sub := range idx.Subcategories {
		if err := e.walkIndexes(ctx, sub.Path, visit); err != nil {
			return err
		}
	}
	return nil
}
