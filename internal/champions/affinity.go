package champions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

var ErrAffinityDecode = errors.New("decode affinity table")

// Affinity maps a normalized champion key to its eligible lanes, primary first.
type Affinity map[string][]Role

type affinityEntry struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// LoadAffinity reads a JSON array of {"name", "roles"} entries. Unknown role
// tokens are dropped with a warning; duplicate roles keep their first rank.
func LoadAffinity(r io.Reader, logger *zap.Logger) (Affinity, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var entries []affinityEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAffinityDecode, err)
	}

	table := make(Affinity, len(entries))
	for _, e := range entries {
		key := Normalize(e.Name)
		if key == "" {
			continue
		}
		seen := make(map[Role]bool, len(e.Roles))
		prefs := make([]Role, 0, len(e.Roles))
		for _, token := range e.Roles {
			role, ok := ParseRole(token)
			if !ok {
				logger.Warn("unknown role in affinity table",
					zap.String("champion", e.Name), zap.String("role", token))
				continue
			}
			if seen[role] {
				continue
			}
			seen[role] = true
			prefs = append(prefs, role)
		}
		table[key] = prefs
	}
	return table, nil
}

// LoadAffinityFile loads the table from path. A missing file yields a nil
// table and no error so callers degrade to the static lanes.
func LoadAffinityFile(path string, logger *zap.Logger) (Affinity, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		if logger != nil {
			logger.Warn("affinity table not found, using static lanes", zap.String("path", path))
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open affinity table: %w", err)
	}
	defer f.Close()

	return LoadAffinity(f, logger)
}
