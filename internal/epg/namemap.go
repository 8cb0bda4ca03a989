package epg

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var reInlineComment = regexp.MustCompile(` +#`)

// ParseNameMap reads "from to" lines. Blank lines, "#" comment lines and
// inline " #" comments are ignored, as are lines without two fields.
func ParseNameMap(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = reInlineComment.Split(line, 2)[0]
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		out[fields[0]] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read name map: %w", err)
	}
	return out, nil
}

// LoadNameMap reads a name map file. A missing file yields an empty map.
func LoadNameMap(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return map[string]string{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("open name map: %w", err)
	}
	defer f.Close()
	return ParseNameMap(f)
}
