package utils

// Window is one slice of a longer text, with rune offsets into the source.
type Window struct {
	Content string
	Start   int // inclusive rune offset
	End     int // exclusive rune offset
}

// SplitWindows splits text into windows of 'size' runes with 'overlap' runes
// shared between consecutive windows. The final window may be shorter; splitting
// stops as soon as a window reaches the end of the text, so a fully-overlapped
// trailing window is never emitted.
func SplitWindows(text string, size int, overlap int) []Window {
	runes := []rune(text)
	totalLen := len(runes)

	if totalLen <= size {
		return []Window{{Content: text, Start: 0, End: totalLen}}
	}

	step := size - overlap
	if step <= 0 {
		step = size // fallback if overlap >= size
	}

	var windows []Window
	for i := 0; i < totalLen; i += step {
		end := i + size
		if end > totalLen {
			end = totalLen
		}

		windows = append(windows, Window{
			Content: string(runes[i:end]),
			Start:   i,
			End:     end,
		})

		if end == totalLen {
			break
		}
	}

	return windows
}
