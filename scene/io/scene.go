package io

import (
	"archive/zip"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/achilleasa/helios/scene"
)

const (
	cameraFile   = "camera.bin"
	materialFile = "materials.bin"
	textureFile  = "textures.bin"
	skyFile      = "sky.bin"
)

// Write a full compiled scene to a zip archive: the cache header, BVH node and
// triangle sections (no triangle index section) plus the camera, materials,
// textures and sky emitted by the external asset pipeline.
func WriteScene(path string, sc *scene.Scene) error {
	logger.Infof("writing compiled scene to %s", path)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("scene archive: %s", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	header := Header{
		Magic:         cacheMagic,
		Version:       cacheVersion,
		NodeCount:     uint32(len(sc.BvhNodes)),
		TriangleCount: uint32(len(sc.Triangles)),
	}

	sections := []struct {
		name string
		data interface{}
	}{
		{headerFile, &header},
		{bvhFile, sc.BvhNodes},
		{triangleFile, sc.Triangles},
		{cameraFile, sc.Camera},
		{materialFile, sc.Materials},
		{textureFile, sc.Textures},
		{skyFile, sc.Sky},
	}

	for _, section := range sections {
		w, err := zw.Create(section.name)
		if err != nil {
			return fmt.Errorf("scene archive: %s", err)
		}
		if err = gob.NewEncoder(w).Encode(section.data); err != nil {
			return fmt.Errorf("scene archive: failed to encode %s: %s", section.name, err)
		}
	}

	return nil
}

// Read a compiled scene archive. The light table is rebuilt from the
// triangle and material arrays.
func ReadScene(path string) (*scene.Scene, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("scene archive: %s", err)
	}
	defer zr.Close()

	var header Header
	sc := &scene.Scene{}

	for _, f := range zr.File {
		var target interface{}
		switch f.Name {
		case headerFile:
			target = &header
		case bvhFile:
			target = &sc.BvhNodes
		case triangleFile:
			target = &sc.Triangles
		case cameraFile:
			target = &sc.Camera
		case materialFile:
			target = &sc.Materials
		case textureFile:
			target = &sc.Textures
		case skyFile:
			target = &sc.Sky
		default:
			logger.Warningf("unknown file %s in scene archive; skipping", f.Name)
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("scene archive: %s", err)
		}
		err = gob.NewDecoder(rc).Decode(target)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("scene archive: failed to decode %s: %s", f.Name, err)
		}
	}

	if header.Magic != cacheMagic {
		return nil, fmt.Errorf("scene archive: %s is not a compiled scene", path)
	}
	if header.Version != cacheVersion {
		return nil, fmt.Errorf("scene archive: unsupported version %d", header.Version)
	}
	if sc.Camera == nil {
		return nil, fmt.Errorf("scene archive: %s carries no camera", path)
	}

	sc.Lights = scene.BuildLightTable(sc.Triangles, sc.Materials)
	return sc, nil
}
