package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/atampy25/glacierdb/internal/cache"
	"github.com/atampy25/glacierdb/internal/hashlist"
	"github.com/atampy25/glacierdb/internal/rpkg"
)

// session holds the opened archives and hash list shared by the
// commands. Archive order is the resolution order. Metadata lookups are
// memoized per runtime ID, so repeated identifiers never re-walk the
// archive chain.
type session struct {
	archives []*rpkg.Archive
	hashList *hashlist.HashList
	meta     *cache.Cache[uint64, *rpkg.ResourceMeta]
}

func openSession() (*session, error) {
	if err := cfg.RequireRuntimeDir(); err != nil {
		return nil, err
	}

	paths := cfg.Archives
	if len(paths) == 0 {
		var err error
		paths, err = rpkg.DiscoverArchives(cfg.RuntimeDir)
		if err != nil {
			return nil, fmt.Errorf("discovering archives: %w", err)
		}
	}

	opened, err := rpkg.OpenAll(paths)
	if err != nil {
		return nil, err
	}
	slog.Info("Opened archives", "count", len(opened))

	s := &session{
		archives: opened,
		meta:     cache.New[uint64, *rpkg.ResourceMeta](),
	}

	if cfg.HashList != "" {
		blob, err := os.ReadFile(cfg.HashList)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("reading hash list: %w", err)
		}
		s.hashList, err = hashlist.Load(blob)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("loading hash list: %w", err)
		}
		slog.Info("Hash list loaded", "entry_count", s.hashList.Len())
	}

	return s, nil
}

// metadata resolves an identifier's metadata, filling the cache on the
// first lookup for its runtime ID. Failed lookups cache nothing.
func (s *session) metadata(identifier string) (*rpkg.ResourceMeta, error) {
	id, err := rpkg.NormalizeIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	return s.meta.GetOrFill(id, func() (*rpkg.ResourceMeta, error) {
		return rpkg.ExtractLatestMeta(s.archives, s.hashList, rpkg.RuntimeIDString(id))
	})
}

func (s *session) Close() error {
	return rpkg.CloseAll(s.archives)
}
