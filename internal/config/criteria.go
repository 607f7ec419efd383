package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/LouYuanbo1/postmanager/param"
	"gopkg.in/yaml.v3"
)

// TypeMismatchError 筛选条件字段的取值形状不对, 例如列表字段给了单个值
type TypeMismatchError struct {
	Field string
	Want  string
	Got   string
	Line  int
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("criteria field %q (line %d): want %s, got %s", e.Field, e.Line, e.Want, e.Got)
}

// 每个字段期望的 YAML 节点类型
var criteriaShapes = map[string]yaml.Kind{
	"statuses":     yaml.SequenceNode,
	"pages":        yaml.SequenceNode,
	"from_page":    yaml.ScalarNode,
	"to_page":      yaml.ScalarNode,
	"areas":        yaml.SequenceNode,
	"sub_areas":    yaml.SequenceNode,
	"categories":   yaml.SequenceNode,
	"posted_dates": yaml.SequenceNode,
	"posting_ids":  yaml.SequenceNode,
	"titles":       yaml.SequenceNode,
	"titles_regex": yaml.ScalarNode,
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "list"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "single value"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}

// LoadCriteria 读取 YAML 格式的筛选条件文件
func LoadCriteria(path string) (*param.Criteria, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取筛选条件文件失败: %w", err)
	}
	return ParseCriteria(data)
}

// ParseCriteria 先检查每个字段的形状, 再解码. 未知字段直接报错.
func ParseCriteria(data []byte) (*param.Criteria, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("解析筛选条件失败: %w", err)
	}
	if len(root.Content) == 0 {
		return &param.Criteria{}, nil
	}
	if err := checkCriteriaShape(root.Content[0]); err != nil {
		return nil, err
	}

	var criteria param.Criteria
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&criteria); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("解析筛选条件失败: %w", err)
	}
	return &criteria, nil
}

func checkCriteriaShape(doc *yaml.Node) error {
	if doc.Kind == yaml.ScalarNode && doc.Tag == "!!null" {
		return nil
	}
	if doc.Kind != yaml.MappingNode {
		return &TypeMismatchError{Field: "criteria", Want: "mapping", Got: kindName(doc.Kind), Line: doc.Line}
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, val := doc.Content[i], doc.Content[i+1]
		want, ok := criteriaShapes[key.Value]
		if !ok {
			return fmt.Errorf("未知的筛选条件字段 %q (第 %d 行)", key.Value, key.Line)
		}
		if val.Kind == yaml.ScalarNode && val.Tag == "!!null" {
			continue
		}
		if val.Kind != want {
			return &TypeMismatchError{Field: key.Value, Want: kindName(want), Got: kindName(val.Kind), Line: val.Line}
		}
		if val.Kind != yaml.SequenceNode {
			continue
		}
		for _, item := range val.Content {
			if item.Kind != yaml.ScalarNode {
				return &TypeMismatchError{Field: key.Value, Want: "list of single values", Got: "list containing a " + kindName(item.Kind), Line: item.Line}
			}
		}
	}
	return nil
}
