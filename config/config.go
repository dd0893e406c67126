package config

import (
	"github.com/altheris/mysql-data-apis/log"
)

type Config interface {
	SupportedOperations() Operations
	Limits() Limits
	Logger() log.Logger
}
