// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package scene

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a scene file.
type File struct {
	Root *Node `yaml:"root"`
}

// LoadFile reads a scene file.
func LoadFile(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}
	root, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("scene file %s: %w", path, err)
	}
	return root, nil
}

// Decode parses and validates a YAML scene.
func Decode(data []byte) (*Node, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("invalid scene: %w", err)
	}
	if f.Root == nil {
		return nil, errors.New("scene has no root node")
	}
	if err := f.Root.validate(""); err != nil {
		return nil, err
	}
	return f.Root, nil
}

// Encode writes the scene as YAML.
func Encode(root *Node) ([]byte, error) {
	return yaml.Marshal(File{Root: root})
}
