// Package io persists the acceleration structure derived from a scene so
// repeated renders skip the external BVH builder. The cache is a zip archive
// of gob encoded sections: a header, the binary BVH node array, the triangle
// index permutation emitted by the builder and the render-form triangle
// array, keyed on the source scene file path.
package io

import (
	"archive/zip"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/achilleasa/helios/log"
	"github.com/achilleasa/helios/scene"
)

const (
	headerFile   = "header.bin"
	bvhFile      = "bvhNodes.bin"
	indexFile    = "indices.bin"
	triangleFile = "triangles.bin"
)

const (
	cacheMagic   uint32 = 0x68656c62 // "helb"
	cacheVersion uint32 = 2
)

var logger = log.New("scene cache")

// The cache header identifies the format and records the array lengths so a
// reader can sanity check the remaining sections.
type Header struct {
	Magic   uint32
	Version uint32

	NodeCount     uint32
	IndexCount    uint32
	TriangleCount uint32
}

// The cached geometry payload.
type Cache struct {
	Nodes     []scene.BvhNode
	Indices   []int32
	Triangles []scene.Triangle
}

// Derive the cache file location for a scene file.
func CachePath(scenePath string) string {
	return scenePath + ".bvh"
}

// Write the cache archive for a scene file.
func Write(scenePath string, cache *Cache) error {
	cachePath := CachePath(scenePath)
	logger.Infof("writing bvh cache to %s", cachePath)

	f, err := os.Create(cachePath)
	if err != nil {
		return fmt.Errorf("scene cache: %s", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	header := Header{
		Magic:         cacheMagic,
		Version:       cacheVersion,
		NodeCount:     uint32(len(cache.Nodes)),
		IndexCount:    uint32(len(cache.Indices)),
		TriangleCount: uint32(len(cache.Triangles)),
	}

	sections := []struct {
		name string
		data interface{}
	}{
		{headerFile, &header},
		{bvhFile, cache.Nodes},
		{indexFile, cache.Indices},
		{triangleFile, cache.Triangles},
	}

	for _, section := range sections {
		w, err := zw.Create(section.name)
		if err != nil {
			return fmt.Errorf("scene cache: %s", err)
		}
		if err = gob.NewEncoder(w).Encode(section.data); err != nil {
			return fmt.Errorf("scene cache: failed to encode %s: %s", section.name, err)
		}
	}

	return nil
}

// Read the cache archive for a scene file. Returns an error when the archive
// is missing, carries an unknown version or its section lengths disagree with
// the header.
func Read(scenePath string) (*Cache, error) {
	cachePath := CachePath(scenePath)

	zr, err := zip.OpenReader(cachePath)
	if err != nil {
		return nil, fmt.Errorf("scene cache: %s", err)
	}
	defer zr.Close()

	var header Header
	cache := &Cache{}

	for _, f := range zr.File {
		var target interface{}
		switch f.Name {
		case headerFile:
			target = &header
		case bvhFile:
			target = &cache.Nodes
		case indexFile:
			target = &cache.Indices
		case triangleFile:
			target = &cache.Triangles
		default:
			logger.Warningf("unknown file %s in cache archive; skipping", f.Name)
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("scene cache: %s", err)
		}
		err = gob.NewDecoder(rc).Decode(target)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("scene cache: failed to decode %s: %s", f.Name, err)
		}
	}

	if header.Magic != cacheMagic {
		return nil, fmt.Errorf("scene cache: %s is not a bvh cache file", cachePath)
	}
	if header.Version != cacheVersion {
		return nil, fmt.Errorf("scene cache: unsupported version %d", header.Version)
	}
	if int(header.NodeCount) != len(cache.Nodes) ||
		int(header.IndexCount) != len(cache.Indices) ||
		int(header.TriangleCount) != len(cache.Triangles) {
		return nil, fmt.Errorf("scene cache: section lengths disagree with header")
	}

	return cache, nil
}

// Load the cache for a scene file, invoking build and persisting its output
// when no valid cache exists.
func LoadOrBuild(scenePath string, build func() (*Cache, error)) (*Cache, error) {
	cache, err := Read(scenePath)
	if err == nil {
		logger.Infof("loaded bvh cache for %s", scenePath)
		return cache, nil
	}

	logger.Infof("no usable bvh cache for %s; rebuilding", scenePath)
	cache, err = build()
	if err != nil {
		return nil, err
	}

	if err = Write(scenePath, cache); err != nil {
		logger.Warningf("could not persist bvh cache: %s", err)
	}
	return cache, nil
}
