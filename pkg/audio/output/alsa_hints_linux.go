//go:build linux

// ABOUTME: ALSA device hints read from /dev/snd and /proc/asound
// ABOUTME: Reports pcm, ctl and hwdep endpoints with their card and stream names
package output

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Resonate-Protocol/alsasink/pkg/sink"
)

var (
	pcmNodeRe     = regexp.MustCompile(`^pcmC(\d+)D(\d+)([pc])$`)
	controlNodeRe = regexp.MustCompile(`^controlC(\d+)$`)
	hwdepNodeRe   = regexp.MustCompile(`^hwC(\d+)D(\d+)$`)
)

// nodeHints lists the hardware device nodes for one interface
func (a *ALSA) nodeHints(iface string) ([]sink.Descriptor, error) {
	var re *regexp.Regexp
	switch iface {
	case sink.IfacePCM:
		re = pcmNodeRe
	case sink.IfaceCtl:
		re = controlNodeRe
	case sink.IfaceHwdep:
		re = hwdepNodeRe
	default:
		return nil, fmt.Errorf("unknown hint interface: %s", iface)
	}

	entries, err := os.ReadDir(a.devRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", a.devRoot, err)
	}

	var hints []sink.Descriptor
	for _, e := range entries {
		m := re.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		card, _ := strconv.Atoi(m[1])
		cardID := a.cardID(card)

		switch iface {
		case sink.IfacePCM:
			dev, _ := strconv.Atoi(m[2])
			dir := sink.DirectionPlayback
			if m[3] == "c" {
				dir = sink.DirectionCapture
			}
			hints = append(hints, sink.Descriptor{
				Interface:   iface,
				Name:        fmt.Sprintf("hw:%d,%d", card, dev),
				Description: a.pcmDescription(card, dev, m[3], cardID),
				Direction:   dir,
			})
		case sink.IfaceCtl:
			hints = append(hints, sink.Descriptor{
				Interface:   iface,
				Name:        fmt.Sprintf("hw:%d", card),
				Description: fmt.Sprintf("%s\nControl device", cardID),
			})
		case sink.IfaceHwdep:
			dev, _ := strconv.Atoi(m[2])
			hints = append(hints, sink.Descriptor{
				Interface:   iface,
				Name:        fmt.Sprintf("hw:%d,%d", card, dev),
				Description: fmt.Sprintf("%s\nHardware dependent device", cardID),
			})
		}
	}

	sort.SliceStable(hints, func(i, j int) bool {
		if hints[i].Name != hints[j].Name {
			return hints[i].Name < hints[j].Name
		}
		return hints[i].Direction < hints[j].Direction
	})
	return hints, nil
}

// cardID returns the short card name, or card<N> when /proc is unavailable
func (a *ALSA) cardID(card int) string {
	data, err := os.ReadFile(filepath.Join(a.procRoot, fmt.Sprintf("card%d", card), "id"))
	if err != nil {
		return fmt.Sprintf("card%d", card)
	}
	return strings.TrimSpace(string(data))
}

func (a *ALSA) pcmDescription(card, dev int, stream, cardID string) string {
	info := filepath.Join(a.procRoot, fmt.Sprintf("card%d", card), fmt.Sprintf("pcm%d%s", dev, stream), "info")
	name := readInfoField(info, "name")
	if name == "" {
		return fmt.Sprintf("%s\nDirect hardware device without any conversions", cardID)
	}
	return fmt.Sprintf("%s, %s\nDirect hardware device without any conversions", cardID, name)
}

// readInfoField returns a "key: value" entry from a /proc info file
func readInfoField(path, key string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		k, v, ok := strings.Cut(scanner.Text(), ":")
		if ok && strings.TrimSpace(k) == key {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
