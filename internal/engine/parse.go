package engine

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/DoyleJ11/scrim-draft-analyzer/internal/champions"
	"github.com/DoyleJ11/scrim-draft-analyzer/internal/roles"
)

const maxLineBytes = 4 * 1024 * 1024

type TeamPick struct {
	ParticipantID int            `json:"participantId"`
	Player        string         `json:"player"`
	Champion      string         `json:"champion"`
	ChampionID    int            `json:"championId"`
	Role          champions.Role `json:"role"`
}

type TeamDraft struct {
	Name  string     `json:"name"`
	Picks []TeamPick `json:"picks"`
}

// ParsedMatch is the draft reconstructed from one livestats stream.
type ParsedMatch struct {
	Actions      []DraftAction `json:"actions"`
	BlueBans     []string      `json:"blueBans"`
	RedBans      []string      `json:"redBans"`
	TeamOne      TeamDraft     `json:"teamOne"`
	TeamTwo      TeamDraft     `json:"teamTwo"`
	Winner       string        `json:"winner"`
	SkippedLines int           `json:"skippedLines"`
}

type Parser struct {
	catalog  *champions.Catalog
	resolver Assigner
	logger   *zap.Logger
}

type Option func(*Parser)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithResolver replaces the catalog-backed lane resolver.
func WithResolver(resolver Assigner) Option {
	return func(p *Parser) { p.resolver = resolver }
}

func NewParser(catalog *champions.Catalog, opts ...Option) *Parser {
	p := &Parser{
		catalog: catalog,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.resolver == nil {
		p.resolver = roles.NewResolver(catalog)
	}
	return p
}

// Parse folds every line of r into a fresh state. Undecodable lines are
// skipped; only a failure of the stream itself is returned.
func (p *Parser) Parse(r io.Reader) (*ParsedMatch, error) {
	state := NewState()
	skipped := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		snap, err := DecodeSnapshot(raw)
		if err != nil {
			skipped++
			p.logger.Debug("skipping undecodable line", zap.Int("line", line), zap.Error(err))
			continue
		}
		state.Apply(snap, line, p.catalog)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: line %d: %w", ErrStreamRead, line+1, err)
	}

	m := state.Finalize(p.resolver, p.logger)
	m.SkippedLines = skipped

	p.logger.Debug("parsed draft",
		zap.Int("lines", line),
		zap.Int("skipped", skipped),
		zap.Int("bans", CountActions(m.Actions, ActionBan)),
		zap.Int("picks", CountActions(m.Actions, ActionPick)),
		zap.String("winner", m.Winner))
	return m, nil
}

func (p *Parser) ParseFile(path string) (*ParsedMatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenStream, err)
	}
	defer f.Close()

	m, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
