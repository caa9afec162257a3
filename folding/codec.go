package folding

import (
	"encoding/json"
	"fmt"
)

type itemKind string

const (
	kindEmpty     itemKind = "empty"
	kindSecStruct itemKind = "secstruct"
	kindScore     itemKind = "score"
	kindDotPlot   itemKind = "dotplot"
	kindMultifold itemKind = "multifold"
	kindEdits     itemKind = "edits"
)

// cacheItem is the stored form of every memoized result.
type cacheItem struct {
	Kind      itemKind         `json:"kind"`
	SecStruct *SecStruct       `json:"secstruct,omitempty"`
	Score     *ScoreResult     `json:"score,omitempty"`
	DotPlot   *DotPlot         `json:"dotplot,omitempty"`
	Multifold *MultiFoldResult `json:"multifold,omitempty"`
	Edits     []EditOp         `json:"edits,omitempty"`
}

// codec maps one result type to and from cacheItem.
type codec[T any] struct {
	kind   itemKind
	empty  func(T) bool
	wrap   func(T) cacheItem
	unwrap func(cacheItem) (T, bool)
}

func (c codec[T]) encode(v T) ([]byte, error) {
	if c.empty(v) {
		return json.Marshal(cacheItem{Kind: kindEmpty})
	}
	item := c.wrap(v)
	item.Kind = c.kind
	return json.Marshal(item)
}

func (c codec[T]) decode(data []byte) (Result[T], error) {
	var item cacheItem
	if err := json.Unmarshal(data, &item); err != nil {
		return Result[T]{}, fmt.Errorf("folding: decode cached %s: %w", c.kind, err)
	}
	if item.Kind == kindEmpty {
		return Result[T]{Outcome: OutcomeEmpty}, nil
	}
	if item.Kind != c.kind {
		return Result[T]{}, fmt.Errorf("folding: cached item is %q, want %q", item.Kind, c.kind)
	}
	v, ok := c.unwrap(item)
	if !ok {
		return Result[T]{}, fmt.Errorf("folding: cached %s item has no payload", c.kind)
	}
	return Result[T]{Value: v, Outcome: OutcomeComputed}, nil
}

var secStructCodec = codec[SecStruct]{
	kind:  kindSecStruct,
	empty: SecStruct.IsEmpty,
	wrap:  func(v SecStruct) cacheItem { return cacheItem{SecStruct: &v} },
	unwrap: func(it cacheItem) (SecStruct, bool) {
		if it.SecStruct == nil {
			return SecStruct{}, false
		}
		return *it.SecStruct, true
	},
}

// A score is always a value: zero energy is a legitimate answer.
var scoreCodec = codec[ScoreResult]{
	kind:  kindScore,
	empty: func(ScoreResult) bool { return false },
	wrap:  func(v ScoreResult) cacheItem { return cacheItem{Score: &v} },
	unwrap: func(it cacheItem) (ScoreResult, bool) {
		if it.Score == nil {
			return ScoreResult{}, false
		}
		return *it.Score, true
	},
}

var dotPlotCodec = codec[DotPlot]{
	kind:  kindDotPlot,
	empty: DotPlot.IsEmpty,
	wrap:  func(v DotPlot) cacheItem { return cacheItem{DotPlot: &v} },
	unwrap: func(it cacheItem) (DotPlot, bool) {
		if it.DotPlot == nil {
			return DotPlot{}, false
		}
		return *it.DotPlot, true
	},
}

var multifoldCodec = codec[MultiFoldResult]{
	kind:  kindMultifold,
	empty: MultiFoldResult.IsEmpty,
	wrap:  func(v MultiFoldResult) cacheItem { return cacheItem{Multifold: &v} },
	unwrap: func(it cacheItem) (MultiFoldResult, bool) {
		if it.Multifold == nil {
			return MultiFoldResult{}, false
		}
		return *it.Multifold, true
	},
}

var editsCodec = codec[[]EditOp]{
	kind:  kindEdits,
	empty: func(v []EditOp) bool { return len(v) == 0 },
	wrap:  func(v []EditOp) cacheItem { return cacheItem{Edits: v} },
	unwrap: func(it cacheItem) ([]EditOp, bool) {
		return it.Edits, len(it.Edits) > 0
	},
}
