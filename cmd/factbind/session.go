package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"factbind/internal/logging"
	"factbind/pkg/fact"
)

// factSpec is one fact in a YAML facts file:
//
//	facts:
//	  - template: edge
//	    slots: {x: 1, y: 2}
type factSpec struct {
	Template string         `yaml:"template"`
	Slots    map[string]any `yaml:"slots"`
}

type factsFile struct {
	Facts []factSpec `yaml:"facts"`
}

// newSession builds an environment from the config and flags: loads the
// configured and flagged programs, then asserts the facts file if one
// was given.
func newSession() (*fact.Environment, error) {
	env, err := fact.New(fact.Config{
		FactLimit: cfg.FactLimit,
		Logger:    logging.For(logger, logging.CategoryEngine),
	})
	if err != nil {
		return nil, err
	}

	sources := append(append([]string{}, cfg.Programs...), programs...)
	if len(sources) == 0 {
		_ = env.Close()
		return nil, fmt.Errorf("no programs given; use --program or the config's programs list")
	}
	for _, path := range sources {
		if err := env.LoadFile(path); err != nil {
			_ = env.Close()
			return nil, err
		}
	}

	if factsPath != "" {
		if err := assertFromFile(env, factsPath); err != nil {
			_ = env.Close()
			return nil, err
		}
	}
	return env, nil
}

func assertFromFile(env *fact.Environment, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read facts file %s: %w", path, err)
	}
	var file factsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse facts file %s: %w", path, err)
	}

	for i, spec := range file.Facts {
		if err := assertSpec(env, spec); err != nil {
			return fmt.Errorf("facts file %s, entry %d: %w", path, i, err)
		}
	}
	return nil
}

func assertSpec(env *fact.Environment, spec factSpec) error {
	fb, err := env.NewFactBuilder(spec.Template)
	if err != nil {
		return err
	}
	defer fb.Dispose()

	for slot, raw := range spec.Slots {
		host, err := hostValue(env, raw)
		if err != nil {
			return fmt.Errorf("template %s, slot %s: %w", spec.Template, slot, err)
		}
		if err := fb.Put(slot, host); err != nil {
			return err
		}
	}
	_, err = fb.Assert()
	return err
}

// hostValue maps YAML-decoded values onto ones Put accepts. Lists
// become multifields; anything else passes through and Put's own
// checks apply.
func hostValue(env *fact.Environment, raw any) (any, error) {
	switch v := raw.(type) {
	case bool, int, int64, float64, string:
		return v, nil
	case []any:
		items := make([]fact.Value, len(v))
		for i, item := range v {
			switch item.(type) {
			case bool, int, int64, float64, string:
				items[i] = fact.Allocate(env, item)
			default:
				return nil, fmt.Errorf("unsupported list element of type %T", item)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %T", raw)
	}
}

// renderValue prints a Value the way the engine's literals read.
func renderValue(v fact.Value) string {
	switch v.Type() {
	case fact.TypeInteger:
		n, _ := fact.As[int64](v)
		return fmt.Sprintf("%d", n)
	case fact.TypeFloat:
		f, _ := fact.As[float64](v)
		return fmt.Sprintf("%g", f)
	case fact.TypeString:
		s, _ := fact.As[string](v)
		return fmt.Sprintf("%q", s)
	case fact.TypeSymbol:
		s, _ := fact.As[fact.Sym](v)
		return string(s)
	case fact.TypeFactAddress:
		if f, ok := fact.As[*fact.Fact](v); ok {
			return fmt.Sprintf("<f-%d>", f.Index())
		}
		return "<retracted fact>"
	case fact.TypeMultifield:
		list, _ := fact.As[[]fact.Value](v)
		out := "("
		for i, item := range list {
			if i > 0 {
				out += " "
			}
			out += renderValue(item)
		}
		return out + ")"
	default:
		return fmt.Sprintf("<%s>", v.Type())
	}
}
