package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// entry is the cached parse result for one config type. The once guards the
// parse; value and err hold its outcome for every later caller.
type entry struct {
	once  sync.Once
	value any
	err   error
}

var (
	cache  sync.Map // type name -> *entry
	dotenv sync.Once
)

// Load parses environment variables into v based on its `env` field tags.
// Each config type is parsed exactly once per process; later calls for the
// same type receive the cached copy. A .env file in the working directory, if
// present, is read before the first parse.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenv.Do(func() {
		// Missing .env is fine; real environments set variables directly.
		_ = godotenv.Load()
	})

	e, _ := cache.LoadOrStore(typeName[T](), &entry{})
	ent := e.(*entry)

	ent.once.Do(func() {
		var parsed T
		if err := env.Parse(&parsed); err != nil {
			ent.err = errors.Join(ErrParsingConfig, err)
			return
		}
		ent.value = parsed
	})

	if ent.err != nil {
		return ent.err
	}
	*v = ent.value.(T)
	return nil
}

// MustLoad is Load for configs the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

func typeName[T any]() string {
	var zero T
	if t := reflect.TypeOf(zero); t != nil {
		return t.String()
	}
	return fmt.Sprintf("%T", *new(T))
}
