package bpstring

import (
	"context"
)

// Info summarizes an envelope.
type Info struct {
	VersionByte byte
	Scheme      Scheme
	Kind        string
	Label       string
	Version     uint64 // Game version of the top-level object
	Blueprints  int    // Blueprints in the item, recursively; 1 for a blueprint
	Entities    int    // Entities summed over all blueprints
	Tiles       int    // Tiles summed over all blueprints
	Size        int    // Envelope length without whitespace
	PayloadSize int    // Decompressed document length
}

func inspect(ctx context.Context, p *pipeline, s string) (Info, error) {
	env, err := p.open(ctx, s)
	if err != nil {
		return Info{}, err
	}
	info := Info{
		VersionByte: env.version,
		Scheme:      env.scheme,
		Kind:        env.doc.Item,
		Version:     env.doc.Version,
		Size:        env.size,
		PayloadSize: env.payload,
	}
	if bd := env.doc.Blueprint; bd != nil {
		info.Label = bd.Label
		info.countBlueprint(bd)
	}
	if bd := env.doc.Book; bd != nil {
		info.Label = bd.Label
		info.countBook(bd)
	}
	return info, nil
}

func (i *Info) countBlueprint(bd *BlueprintDoc) {
	i.Blueprints++
	i.Entities += len(bd.Entities)
	i.Tiles += len(bd.Tiles)
}

func (i *Info) countBook(bd *BookDoc) {
	for _, e := range bd.Blueprints {
		if e.Blueprint != nil {
			i.countBlueprint(e.Blueprint)
		}
		if e.Book != nil {
			i.countBook(e.Book)
		}
	}
}
