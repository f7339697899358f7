package render

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"
)

// JSON encodes v; pretty output is indented by two spaces.
func JSON(v any, pretty bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = sonic.MarshalIndent(v, "", "  ")
	} else {
		data, err = sonic.Marshal(v)
	}
	if err != nil {
		return nil, fmt.Errorf("序列化 JSON 失败: %w", err)
	}
	return data, nil
}

// WriteJSON writes the indented encoding of v to w.
func WriteJSON(w io.Writer, v any) error {
	data, err := JSON(v, true)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("写入 JSON 失败: %w", err)
	}
	return nil
}
