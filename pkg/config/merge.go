package config

import (
	"fmt"
	"reflect"
)

// MergeConfig 将 src 中的非零值覆盖到 dst 并返回 dst
// dst 为 nil 返回 src，src 为 nil 返回 dst，两者都为 nil 返回错误。
// 注意：bool 的 false 视为零值，无法覆盖 dst 中的 true。
func MergeConfig[T any](dst, src *T) (*T, error) {
	switch {
	case dst == nil && src == nil:
		return nil, ErrNilConfig
	case dst == nil:
		return src, nil
	case src == nil:
		return dst, nil
	}

	if err := mergeValue(reflect.ValueOf(dst).Elem(), reflect.ValueOf(src).Elem()); err != nil {
		return nil, err
	}
	return dst, nil
}

func mergeValue(dst, src reflect.Value) error {
	if !src.IsValid() || src.IsZero() || isEmptyContainer(src) {
		return nil
	}

	switch dst.Kind() {
	case reflect.Struct:
		t := src.Type()
		for i := 0; i < src.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			df := dst.FieldByName(field.Name)
			if !df.IsValid() || !df.CanSet() {
				continue
			}
			if err := mergeValue(df, src.Field(i)); err != nil {
				return fmt.Errorf("failed to merge field %s: %w", field.Name, err)
			}
		}
		return nil

	case reflect.Map:
		if dst.IsNil() {
			dst.Set(reflect.MakeMap(dst.Type()))
		}
		iter := src.MapRange()
		for iter.Next() {
			existing := dst.MapIndex(iter.Key())
			if !existing.IsValid() {
				dst.SetMapIndex(iter.Key(), iter.Value())
				continue
			}
			merged := reflect.New(dst.Type().Elem()).Elem()
			merged.Set(existing)
			if err := mergeValue(merged, iter.Value()); err != nil {
				return err
			}
			dst.SetMapIndex(iter.Key(), merged)
		}
		return nil

	case reflect.Ptr:
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return mergeValue(dst.Elem(), src.Elem())

	default:
		// 基本类型与切片整体覆盖
		if dst.CanSet() {
			dst.Set(src)
		}
		return nil
	}
}

func isEmptyContainer(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	}
	return false
}
