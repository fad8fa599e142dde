package adformat

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/route-studio/roadgraph/internal/roadnet"
)

// Write serializes the document back into AutoDrive XML. Node ids are
// compacted to a dense 1..n range (the game expects ids to be list
// positions); connections are flattened into the out/incoming lists so
// that direction survives a round trip: Regular lists the edge in
// out+incoming, Reverse omits the incoming entry, Dual lists both sides.
func Write(w io.Writer, doc *Document) error {
	store := doc.Store
	ids := store.NodeIDs()

	remap := make(map[uint64]uint64, len(ids))
	for i, id := range ids {
		remap[id] = uint64(i + 1)
	}

	outgoing := make(map[uint64][]uint64, len(ids))
	incoming := make(map[uint64][]uint64, len(ids))
	for _, c := range store.Connections() {
		outgoing[c.Start] = append(outgoing[c.Start], c.End)
		if c.Direction != roadnet.DirReverse {
			incoming[c.End] = append(incoming[c.End], c.Start)
		}
		if c.Direction == roadnet.DirDual {
			outgoing[c.End] = append(outgoing[c.End], c.Start)
			incoming[c.Start] = append(incoming[c.Start], c.End)
		}
	}

	var idsText, xsText, ysText, zsText, flagsText, outText, incomingText []string
	for _, id := range ids {
		node, ok := store.Node(id)
		if !ok {
			return fmt.Errorf("inconsistent store: node %d missing during export", id)
		}
		idsText = append(idsText, strconv.FormatUint(remap[id], 10))
		xsText = append(xsText, formatCoord(node.Pos.X))
		ysText = append(ysText, formatCoord(doc.Elevations[id]))
		zsText = append(zsText, formatCoord(node.Pos.Y))
		flagsText = append(flagsText, strconv.FormatUint(uint64(node.Flag.Raw()), 10))
		outText = append(outText, joinRemapped(outgoing[id], remap))
		incomingText = append(incomingText, joinRemapped(incoming[id], remap))
	}

	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\" standalone=\"no\"?>\n")
	b.WriteString("<AutoDrive>\n")
	if doc.Meta.ConfigVersion != "" {
		fmt.Fprintf(&b, "    <version>%s</version>\n", escapeXML(doc.Meta.ConfigVersion))
	}
	if doc.Meta.MapName != "" {
		fmt.Fprintf(&b, "    <mapName>%s</mapName>\n", escapeXML(doc.Meta.MapName))
	}
	if doc.Meta.RouteAuthor != "" {
		fmt.Fprintf(&b, "    <routeAuthor>%s</routeAuthor>\n", escapeXML(doc.Meta.RouteAuthor))
	}
	if doc.Meta.RouteVersion != "" {
		fmt.Fprintf(&b, "    <routeVersion>%s</routeVersion>\n", escapeXML(doc.Meta.RouteVersion))
	}

	b.WriteString("    <waypoints>\n")
	fmt.Fprintf(&b, "        <id>%s</id>\n", strings.Join(idsText, ","))
	fmt.Fprintf(&b, "        <x>%s</x>\n", strings.Join(xsText, ","))
	fmt.Fprintf(&b, "        <y>%s</y>\n", strings.Join(ysText, ","))
	fmt.Fprintf(&b, "        <z>%s</z>\n", strings.Join(zsText, ","))
	fmt.Fprintf(&b, "        <out>%s</out>\n", strings.Join(outText, ";"))
	fmt.Fprintf(&b, "        <incoming>%s</incoming>\n", strings.Join(incomingText, ";"))
	fmt.Fprintf(&b, "        <flags>%s</flags>\n", strings.Join(flagsText, ","))
	b.WriteString("    </waypoints>\n")

	b.WriteString("    <mapmarker>\n")
	for i, m := range store.Markers() {
		tag := fmt.Sprintf("mm%d", i+1)
		markerID := remap[m.NodeID]
		if markerID == 0 {
			markerID = m.NodeID
		}
		fmt.Fprintf(&b, "        <%s>\n", tag)
		fmt.Fprintf(&b, "            <id>%.6f</id>\n", float64(markerID))
		fmt.Fprintf(&b, "            <name>%s</name>\n", escapeXML(m.Name))
		fmt.Fprintf(&b, "            <group>%s</group>\n", escapeXML(m.Group))
		fmt.Fprintf(&b, "        </%s>\n", tag)
	}
	b.WriteString("    </mapmarker>\n")
	b.WriteString("</AutoDrive>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func joinRemapped(list []uint64, remap map[uint64]uint64) string {
	mapped := make([]uint64, 0, len(list))
	for _, id := range list {
		if newID, ok := remap[id]; ok {
			mapped = append(mapped, newID)
		}
	}
	// The game writes -1 for a waypoint with no links.
	if len(mapped) == 0 {
		return "-1"
	}
	sort.Slice(mapped, func(i, j int) bool { return mapped[i] < mapped[j] })
	parts := make([]string, len(mapped))
	for i, id := range mapped {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}

func formatCoord(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', 3, 32)
}

func escapeXML(value string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(value)); err != nil {
		return value
	}
	return buf.String()
}
