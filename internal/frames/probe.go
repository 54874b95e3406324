package frames

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ProbeInfo is the subset of ffprobe output needed to decode a clip.
type ProbeInfo struct {
	Width     int
	Height    int
	FrameRate float64
	Frames    int
	Duration  float64
	Codec     string
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	NbFrames     string `json:"nb_frames"`
	Duration     string `json:"duration"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

// Probe asks ffprobe for the first video stream of path.
func Probe(ctx context.Context, runner Runner, ffprobe, path string) (ProbeInfo, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name,width,height,r_frame_rate,avg_frame_rate,nb_frames,duration:format=duration",
		"-print_format", "json",
		path,
	}
	result, err := runner.Run(ctx, ffprobe, args, RunOptions{})
	if err != nil {
		if tail := stderrTail(string(result.Stderr)); tail != "" {
			err = fmt.Errorf("%w: %s", err, tail)
		}
		return ProbeInfo{}, &ResourceError{Path: path, Op: "probe", Err: err}
	}
	info, err := parseProbe(result.Stdout)
	if err != nil {
		return ProbeInfo{}, &ResourceError{Path: path, Op: "probe", Err: err}
	}
	return info, nil
}

func parseProbe(raw []byte) (ProbeInfo, error) {
	if len(raw) == 0 {
		return ProbeInfo{}, fmt.Errorf("ffprobe produced no output")
	}
	var parsed ffprobeOutput
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ProbeInfo{}, fmt.Errorf("decode ffprobe output: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return ProbeInfo{}, fmt.Errorf("no video stream")
	}
	stream := parsed.Streams[0]
	if stream.Width <= 0 || stream.Height <= 0 {
		return ProbeInfo{}, fmt.Errorf("invalid video size %dx%d", stream.Width, stream.Height)
	}

	info := ProbeInfo{Width: stream.Width, Height: stream.Height, Codec: stream.CodecName}
	info.FrameRate = parseRate(stream.AvgFrameRate)
	if info.FrameRate <= 0 {
		info.FrameRate = parseRate(stream.RFrameRate)
	}
	if n, err := strconv.Atoi(stream.NbFrames); err == nil {
		info.Frames = n
	}
	info.Duration = parseSeconds(stream.Duration)
	if info.Duration <= 0 {
		info.Duration = parseSeconds(parsed.Format.Duration)
	}
	return info, nil
}

// parseRate accepts ffprobe rationals like "30000/1001" as well as plain
// numbers.
func parseRate(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	num, den, ok := strings.Cut(value, "/")
	if !ok {
		return parseSeconds(value)
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

func parseSeconds(value string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
