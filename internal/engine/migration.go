package engine

import "fmt"

// Migrate copies every named collection from src to dst, replacing whatever
// dst held for those names. This works for:
// - json -> sqlite (the "upgrade")
// - sqlite -> json (export back to human-auditable files)
//
// A collection that src has never written is skipped. A corrupt source
// aborts the migration before dst is touched for that collection.
func Migrate(src, dst Persister, names []string) (int, error) {
	copied := 0
	for _, name := range names {
		// 1. Skip collections the source does not have
		ok, err := src.Exists(name)
		if err != nil {
			return copied, fmt.Errorf("failed to check collection %s: %w", name, err)
		}
		if !ok {
			continue
		}

		// 2. Read the full collection
		records, err := src.Load(name)
		if err != nil {
			return copied, fmt.Errorf("failed to load collection %s: %w", name, err)
		}

		// 3. Replace it in the destination
		if err := dst.Save(name, records); err != nil {
			return copied, fmt.Errorf("failed to save collection %s in destination: %w", name, err)
		}
		copied += len(records)
	}
	return copied, nil
}
