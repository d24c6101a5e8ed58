package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"k8s.io/apimachinery/pkg/api/resource"
)

// CustomHooks are applied whenever flags, config files and environment are decoded into a struct.
var CustomHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		QuantityDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
	)),
}

var quantityType = reflect.TypeOf(resource.Quantity{})

// QuantityDecodeHook decodes sizes written as "100Mi" or as plain byte counts, which yaml hands
// over as numbers, into a resource.Quantity.
func QuantityDecodeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != quantityType {
			return data, nil
		}
		var raw string
		switch v := data.(type) {
		case string:
			raw = strings.TrimSpace(v)
		case int:
			raw = strconv.Itoa(v)
		case int64:
			raw = strconv.FormatInt(v, 10)
		case uint64:
			raw = strconv.FormatUint(v, 10)
		case float64:
			raw = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			raw = fmt.Sprintf("%v", data)
		}
		q, err := resource.ParseQuantity(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid quantity %q", raw)
		}
		return q, nil
	}
}
