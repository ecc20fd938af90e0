package execscan

import (
	"bufio"
	"io"
	"strings"
)

// eachLine calls fn for every line in r, terminator included.
//
// The iteration matches a text-mode line iterator: an empty input yields no
// lines, a final line without a terminator is yielded, and input ending in a
// terminator does not yield a dangling empty line.
func eachLine(r io.Reader, fn func(line string)) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			fn(line)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// trimEOL strips one trailing "\n" or "\r\n".
func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
