package transcode

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"
)

// ParseTimeMark extracts an elapsed media time from one line of ffmpeg
// output. It understands both the stderr status form ("time=HH:MM:SS.cc")
// and the -progress key/value form ("out_time_ms=123456").
func ParseTimeMark(line string) (time.Duration, bool) {
	line = strings.TrimSpace(line)

	if value, ok := cutKey(line, "out_time_ms="); ok {
		micros, err := strconv.ParseInt(value, 10, 64)
		if err != nil || micros < 0 {
			return 0, false
		}
		// Despite the name, ffmpeg reports microseconds here.
		return time.Duration(micros) * time.Microsecond, true
	}

	if idx := strings.Index(line, "time="); idx >= 0 {
		rest := line[idx+len("time="):]
		if end := strings.IndexByte(rest, ' '); end >= 0 {
			rest = rest[:end]
		}
		return parseClock(rest)
	}

	return 0, false
}

func cutKey(line, prefix string) (string, bool) {
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	return strings.TrimSpace(line[len(prefix):]), true
}

func parseClock(value string) (time.Duration, bool) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, false
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 {
		return 0, false
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || seconds < 0 || seconds >= 60 {
		return 0, false
	}
	total := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	return total, true
}

// watchProgress reads an ffmpeg output stream and reports a monotonically
// non-decreasing 0–99 percentage for each elapsed-time marker. The final 100
// is forced by the caller only after a clean process exit.
func watchProgress(r io.Reader, total time.Duration, report func(percent int)) {
	if report == nil {
		report = func(int) {}
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanStatusLines)

	last := -1
	for scanner.Scan() {
		elapsed, ok := ParseTimeMark(scanner.Text())
		if !ok || total <= 0 {
			continue
		}
		percent := int(float64(elapsed) / float64(total) * 100)
		if percent > 99 {
			percent = 99
		}
		if percent > last {
			last = percent
			report(percent)
		}
	}
}

// scanStatusLines splits on newlines and carriage returns; ffmpeg rewrites
// its status line with bare \r.
func scanStatusLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if idx := bytes.IndexAny(data, "\r\n"); idx >= 0 {
		return idx + 1, data[:idx], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
