// Package adformat reads and writes AutoDrive route-network XML configs.
// The format stores waypoints as structure-of-arrays (parallel id/x/y/z/
// out/incoming/flags lists) and markers as numbered <mmN> elements. The
// graph store itself has no knowledge of this format; this package is the
// import/export collaborator that builds the records and serializes them
// back out.
package adformat

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/route-studio/roadgraph/internal/geo"
	"github.com/route-studio/roadgraph/internal/roadnet"
)

// Meta carries the config header fields the store does not model.
type Meta struct {
	Version       string
	ConfigVersion string
	MapName       string
	RouteAuthor   string
	RouteVersion  string
}

// Document is a parsed AutoDrive config: the populated store plus the
// header meta and the per-node elevation values the 2D store drops.
type Document struct {
	Store      *roadnet.Store
	Meta       Meta
	Elevations map[uint64]float32
}

// Parse reads an AutoDrive XML config and builds the waypoint store.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)

	var meta Meta
	var idsRaw, xRaw, yRaw, zRaw, outRaw, incomingRaw, flagsRaw strings.Builder

	inWaypoints := false
	inMapMarker := false
	inMarkerElement := false
	var currentTag string

	type rawMarker struct {
		id    uint64
		hasID bool
		name  string
		group string
	}
	var markers []rawMarker
	var current rawMarker

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read xml token: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			tag := t.Name.Local
			switch {
			case tag == "AutoDrive":
				for _, attr := range t.Attr {
					if attr.Name.Local == "version" {
						meta.Version = attr.Value
					}
				}
			case tag == "waypoints":
				inWaypoints = true
			case tag == "mapmarker":
				inMapMarker = true
			case inMapMarker && !inMarkerElement && strings.HasPrefix(tag, "mm"):
				inMarkerElement = true
				current = rawMarker{}
			default:
				currentTag = tag
			}

		case xml.EndElement:
			tag := t.Name.Local
			switch {
			case tag == "waypoints":
				inWaypoints = false
			case inMarkerElement && strings.HasPrefix(tag, "mm"):
				if current.hasID {
					markers = append(markers, current)
				}
				inMarkerElement = false
			case tag == "mapmarker":
				inMapMarker = false
			}
			currentTag = ""

		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			switch {
			case inWaypoints:
				switch currentTag {
				case "id":
					idsRaw.WriteString(text)
				case "x":
					xRaw.WriteString(text)
				case "y":
					yRaw.WriteString(text)
				case "z":
					zRaw.WriteString(text)
				case "out":
					outRaw.WriteString(text)
				case "incoming":
					incomingRaw.WriteString(text)
				case "flags":
					flagsRaw.WriteString(text)
				}
			case inMarkerElement:
				switch currentTag {
				case "id":
					id, err := parseMarkerID(text)
					if err != nil {
						return nil, fmt.Errorf("invalid marker id %q: %w", text, err)
					}
					current.id = id
					current.hasID = true
				case "name":
					current.name = text
				case "group":
					current.group = text
				}
			default:
				switch currentTag {
				case "version":
					meta.ConfigVersion = text
				case "mapName", "MapName":
					meta.MapName = text
				case "routeAuthor":
					meta.RouteAuthor = text
				case "routeVersion":
					meta.RouteVersion = text
				}
			}
		}
	}

	doc, err := buildDocument(
		idsRaw.String(), xRaw.String(), yRaw.String(), zRaw.String(),
		flagsRaw.String(), outRaw.String(), incomingRaw.String(),
	)
	if err != nil {
		return nil, err
	}
	doc.Meta = meta

	for i, m := range markers {
		marker := roadnet.NewMarker(m.id, m.name, m.group, uint32(i+1), false)
		if err := doc.Store.SetMarker(marker); err != nil {
			log.Printf("adformat: skip marker %q on missing node %d", m.name, m.id)
		}
	}
	return doc, nil
}

// buildDocument converts the raw structure-of-arrays buffers into store
// records. Connection directions are inferred from the out/incoming
// lists: if the target also lists the source as outgoing, the edge is
// Dual (emitted once per pair); if the target's incoming list is missing
// the source, the edge is Reverse; otherwise Regular.
func buildDocument(idsRaw, xRaw, yRaw, zRaw, flagsRaw, outRaw, incomingRaw string) (*Document, error) {
	ids, err := parseUintList(idsRaw)
	if err != nil {
		return nil, fmt.Errorf("parse id list: %w", err)
	}
	xs, err := parseFloatList(xRaw)
	if err != nil {
		return nil, fmt.Errorf("parse x list: %w", err)
	}
	zs, err := parseFloatList(zRaw)
	if err != nil {
		return nil, fmt.Errorf("parse z list: %w", err)
	}
	flags, err := parseUintList(flagsRaw)
	if err != nil {
		return nil, fmt.Errorf("parse flags list: %w", err)
	}
	outgoing, err := parseNestedList(outRaw)
	if err != nil {
		return nil, fmt.Errorf("parse out list: %w", err)
	}
	incoming, err := parseNestedList(incomingRaw)
	if err != nil {
		return nil, fmt.Errorf("parse incoming list: %w", err)
	}

	var ys []float32
	if strings.TrimSpace(yRaw) != "" {
		ys, err = parseFloatList(yRaw)
		if err != nil {
			return nil, fmt.Errorf("parse y list: %w", err)
		}
	}

	n := len(ids)
	if len(xs) != n || len(zs) != n || len(flags) != n || len(outgoing) != n || len(incoming) != n {
		return nil, errors.New("waypoint list lengths do not match")
	}
	if ys != nil && len(ys) != n {
		return nil, errors.New("y list length does not match")
	}

	store := roadnet.NewStore()
	elevations := make(map[uint64]float32, n)
	indexOf := make(map[uint64]int, n)

	for i, id := range ids {
		node := roadnet.NewNode(id, geo.Pt(xs[i], zs[i]), roadnet.FlagFromRaw(uint32(flags[i])))
		if err := store.AddNode(node); err != nil {
			return nil, fmt.Errorf("add node %d: %w", id, err)
		}
		indexOf[id] = i
		if ys != nil {
			elevations[id] = ys[i]
		}
	}

	type pair struct{ lo, hi uint64 }
	dualSeen := make(map[pair]struct{})

	for i, sourceID := range ids {
		for _, targetID := range outgoing[i] {
			if targetID == sourceID {
				continue
			}
			ti, ok := indexOf[targetID]
			if !ok {
				log.Printf("adformat: missing target node %d", targetID)
				continue
			}

			dir := roadnet.DirRegular
			if containsID(outgoing[ti], sourceID) {
				dir = roadnet.DirDual
			} else if !containsID(incoming[ti], sourceID) {
				dir = roadnet.DirReverse
			}

			if dir == roadnet.DirDual {
				p := pair{lo: minU64(sourceID, targetID), hi: maxU64(sourceID, targetID)}
				if _, seen := dualSeen[p]; seen {
					continue
				}
				dualSeen[p] = struct{}{}
			}

			prio := roadnet.PrioRegular
			target, _ := store.Node(targetID)
			if target.Flag == roadnet.FlagSubPrio {
				prio = roadnet.PrioSubPriority
			}
			source, _ := store.Node(sourceID)

			conn := roadnet.NewConnection(sourceID, targetID, dir, prio, source.Pos, target.Pos)
			if err := store.AddConnection(conn); err != nil {
				return nil, fmt.Errorf("add connection %d→%d: %w", sourceID, targetID, err)
			}
		}
	}

	return &Document{Store: store, Elevations: elevations}, nil
}

// parseMarkerID accepts both integer ids and the float form ("12.000000")
// AutoDrive writes.
func parseMarkerID(text string) (uint64, error) {
	if id, err := strconv.ParseUint(text, 10, 64); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("negative marker id %v", f)
	}
	return uint64(f), nil
}

func parseUintList(text string) ([]uint64, error) {
	var out []uint64
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloatList(text string) ([]float32, error) {
	var out []float32
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 32)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", part, err)
		}
		out = append(out, float32(v))
	}
	return out, nil
}

// parseNestedList parses semicolon-separated per-waypoint groups of
// comma-separated ids. Negative sentinel entries ("-1") mean empty.
func parseNestedList(text string) ([][]uint64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	parts := strings.Split(text, ";")
	out := make([][]uint64, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			out = append(out, nil)
			continue
		}
		var group []uint64
		for _, item := range strings.Split(part, ",") {
			item = strings.TrimSpace(item)
			if item == "" || strings.HasPrefix(item, "-") {
				continue
			}
			v, err := strconv.ParseUint(item, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("value %q: %w", item, err)
			}
			group = append(group, v)
		}
		out = append(out, group)
	}
	return out, nil
}

func containsID(list []uint64, id uint64) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
