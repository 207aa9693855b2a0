// Package topicmap converts topic-addressed messages into time-series records
// according to a declarative mapping configuration.
//
// Example usage:
//
//	mappings, err := topicmap.LoadMappings("/etc/topicmap/config.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mapper, err := topicmap.New(mappings, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	records, err := mapper.Resolve("sensors/temp", []byte(`{"t": 21.5}`))
package topicmap

import (
	"github.com/bft-labs/topicmap/internal/adapters/expression"
	"github.com/bft-labs/topicmap/internal/adapters/pathquery"
	"github.com/bft-labs/topicmap/internal/cliconfig"
	"github.com/bft-labs/topicmap/internal/domain"
	"github.com/bft-labs/topicmap/internal/mapping"
	"github.com/bft-labs/topicmap/pkg/log"
)

type (
	// Mapper resolves messages into records. It is safe for concurrent use.
	Mapper = mapping.Mapper

	// Mapping is one configured rule. Build it with NewMapping.
	Mapping = domain.Mapping

	// MappingSpec is the loosely typed form of a mapping.
	MappingSpec = domain.MappingSpec

	// Record is one measurement/field/value data point.
	Record = domain.Record
)

var (
	ErrUnknownTopic       = domain.ErrUnknownTopic
	ErrInvalidMessageType = domain.ErrInvalidMessageType
	ErrInvalidMapping     = domain.ErrInvalidMapping
	ErrVariableCollision  = domain.ErrVariableCollision
)

// New builds a Mapper with the default JSONPath engine and expression
// evaluator. A nil logger discards warnings.
func New(mappings []Mapping, logger log.Logger) (*Mapper, error) {
	return mapping.New(mappings,
		mapping.WithLogger(logger),
		mapping.WithPathQuery(pathquery.New()),
		mapping.WithEvaluator(expression.New()),
	)
}

// NewMapping validates spec and decides its layout and value source.
func NewMapping(spec MappingSpec) (Mapping, error) {
	return domain.NewMapping(spec)
}

// LoadMappings reads the [[mapping]] tables of a TOML configuration file.
func LoadMappings(path string) ([]Mapping, error) {
	return cliconfig.LoadMappings(path)
}
