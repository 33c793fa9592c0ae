// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2025 YourCompany
//
// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"fmt"
	"math"

	"github.com/edgexfoundry/device-sdk-go/v4/pkg/models"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/common"
)

// commandValue 把缓存的通道值封装成指定类型的 CommandValue
func commandValue(res Resource, deviceResourceName, dataType string) (*models.CommandValue, error) {
	var (
		cv  *models.CommandValue
		err error
	)
	v := res.Value
	switch dataType {
	case common.ValueTypeFloat64, "":
		cv, err = models.NewCommandValue(deviceResourceName, common.ValueTypeFloat64, v)
	case common.ValueTypeFloat32:
		cv, err = models.NewCommandValue(deviceResourceName, common.ValueTypeFloat32, float32(v))
	case common.ValueTypeInt8, common.ValueTypeInt16, common.ValueTypeInt32, common.ValueTypeInt64:
		cv, err = intValue(deviceResourceName, dataType, v)
	case common.ValueTypeUint8, common.ValueTypeUint16, common.ValueTypeUint32, common.ValueTypeUint64:
		cv, err = uintValue(deviceResourceName, dataType, v)
	case common.ValueTypeBool:
		cv, err = models.NewCommandValue(deviceResourceName, common.ValueTypeBool, v != 0)
	default:
		return nil, fmt.Errorf("unsupported dataType %s for %s", dataType, deviceResourceName)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s CommandValue: %w", dataType, err)
	}
	cv.Origin = res.Origin
	return cv, nil
}

func intValue(name, dataType string, v float64) (*models.CommandValue, error) {
	if v != math.Trunc(v) {
		return nil, fmt.Errorf("%v is not an integer", v)
	}
	switch dataType {
	case common.ValueTypeInt8:
		if v < math.MinInt8 || v > math.MaxInt8 {
			return nil, fmt.Errorf("%v out of int8 range", v)
		}
		return models.NewCommandValue(name, dataType, int8(v))
	case common.ValueTypeInt16:
		if v < math.MinInt16 || v > math.MaxInt16 {
			return nil, fmt.Errorf("%v out of int16 range", v)
		}
		return models.NewCommandValue(name, dataType, int16(v))
	case common.ValueTypeInt32:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, fmt.Errorf("%v out of int32 range", v)
		}
		return models.NewCommandValue(name, dataType, int32(v))
	default:
		if v < math.MinInt64 || v >= 1<<63 {
			return nil, fmt.Errorf("%v out of int64 range", v)
		}
		return models.NewCommandValue(name, dataType, int64(v))
	}
}

func uintValue(name, dataType string, v float64) (*models.CommandValue, error) {
	if v != math.Trunc(v) || v < 0 {
		return nil, fmt.Errorf("%v is not an unsigned integer", v)
	}
	switch dataType {
	case common.ValueTypeUint8:
		if v > math.MaxUint8 {
			return nil, fmt.Errorf("%v out of uint8 range", v)
		}
		return models.NewCommandValue(name, dataType, uint8(v))
	case common.ValueTypeUint16:
		if v > math.MaxUint16 {
			return nil, fmt.Errorf("%v out of uint16 range", v)
		}
		return models.NewCommandValue(name, dataType, uint16(v))
	case common.ValueTypeUint32:
		if v > math.MaxUint32 {
			return nil, fmt.Errorf("%v out of uint32 range", v)
		}
		return models.NewCommandValue(name, dataType, uint32(v))
	default:
		if v >= 1<<64 {
			return nil, fmt.Errorf("%v out of uint64 range", v)
		}
		return models.NewCommandValue(name, dataType, uint64(v))
	}
}

// paramFloat 取出上层下发的数值参数，布尔值按 1/0 处理
func paramFloat(param *models.CommandValue) (float64, error) {
	var (
		f   float64
		err error
	)
	switch param.Type {
	case common.ValueTypeFloat32:
		var v float32
		v, err = param.Float32Value()
		f = float64(v)
	case common.ValueTypeFloat64:
		f, err = param.Float64Value()
	case common.ValueTypeInt8:
		var v int8
		v, err = param.Int8Value()
		f = float64(v)
	case common.ValueTypeInt16:
		var v int16
		v, err = param.Int16Value()
		f = float64(v)
	case common.ValueTypeInt32:
		var v int32
		v, err = param.Int32Value()
		f = float64(v)
	case common.ValueTypeInt64:
		var v int64
		v, err = param.Int64Value()
		f = float64(v)
	case common.ValueTypeUint8:
		var v uint8
		v, err = param.Uint8Value()
		f = float64(v)
	case common.ValueTypeUint16:
		var v uint16
		v, err = param.Uint16Value()
		f = float64(v)
	case common.ValueTypeUint32:
		var v uint32
		v, err = param.Uint32Value()
		f = float64(v)
	case common.ValueTypeUint64:
		var v uint64
		v, err = param.Uint64Value()
		f = float64(v)
	case common.ValueTypeBool:
		var v bool
		v, err = param.BoolValue()
		if v {
			f = 1
		}
	default:
		return 0, fmt.Errorf("unsupported parameter type %s", param.Type)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid %s value for %s: %w", param.Type, param.DeviceResourceName, err)
	}
	return f, nil
}
