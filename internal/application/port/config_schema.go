package port

//go:generate mockgen -source=config_schema.go -destination=mocks/mock_config_schema.go -package=mocks

import "github.com/bnema/vidpipe/internal/domain/entity"

// ConfigSchemaProvider lists the configuration keys with their metadata.
type ConfigSchemaProvider interface {
	GetSchema() []entity.ConfigKeyInfo
}
