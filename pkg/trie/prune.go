// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

package trie

import (
	"fmt"

	"github.com/statechain/mtrie/pkg/trie/internal/log"
	"github.com/statechain/mtrie/pkg/trie/nibble"
)

// prune scans the orphan log for every record with orphaned_since <= upTo,
// deletes the referenced node record, then deletes the orphan record
// itself. Grounded on dot/state/pruner.go's deathRow sweep, generalized
// from its fixed retainBlocks window to an explicit caller-supplied
// version bound.
func prune(store Store, orphans OrphanLog, upTo uint64, logger *log.Logger) error {
	var toDelete []orphanRecord

	err := orphans.RangeUpTo(upTo, func(since, origVersion uint64, path nibble.Path) (bool, error) {
		toDelete = append(toDelete, orphanRecord{since: since, origVersion: origVersion, path: path})
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("trie: prune: scanning orphans up to v%d: %w", upTo, err)
	}

	deleted := 0
	for _, rec := range toDelete {
		if err := store.Delete(rec.origVersion, rec.path); err != nil {
			return fmt.Errorf("trie: prune: deleting node (v%d, %s): %w", rec.origVersion, rec.path, err)
		}
		if err := orphans.Delete(rec.since, rec.origVersion, rec.path); err != nil {
			return fmt.Errorf("trie: prune: deleting orphan record (v%d, v%d, %s): %w", rec.since, rec.origVersion, rec.path, err)
		}
		deleted++
	}

	logger.Info(fmt.Sprintf("pruned %d node(s) orphaned at or before v%d", deleted, upTo))
	return nil
}

type orphanRecord struct {
	since       uint64
	origVersion uint64
	path        nibble.Path
}
