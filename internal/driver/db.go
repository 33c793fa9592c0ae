package driver

import (
	"maps"
	"sync"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
)

// Resource 一个通道的最新读数
type Resource struct {
	Name   string  // 资源名 = 通道名
	Value  float64 // 最新值
	Origin int64   // 采样时间 (UnixNano)
}

// DB 是一个简单的内存存储：DeviceName → ResourceName → Resource
type DB struct {
	mu    sync.RWMutex
	store map[string]map[string]Resource
}

// NewDB 返回一个新建但未初始化的 DB
func NewDB() *DB {
	return &DB{
		store: make(map[string]map[string]Resource),
	}
}

// Init 清空所有数据，准备使用
func (d *DB) Init() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.store = make(map[string]map[string]Resource)
}

// Update 写入一帧的全部通道值
func (d *DB) Update(deviceName string, values map[string]float64, origin int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.store == nil {
		d.store = make(map[string]map[string]Resource)
	}
	devMap, ok := d.store[deviceName]
	if !ok {
		devMap = make(map[string]Resource, len(values))
		d.store[deviceName] = devMap
	}
	for name, v := range values {
		devMap[name] = Resource{Name: name, Value: v, Origin: origin}
	}
}

// GetResource 获取指定设备某个通道的最新值
func (d *DB) GetResource(deviceName, resourceName string) (Resource, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	devMap, devOk := d.store[deviceName]
	if !devOk {
		return Resource{}, errors.NewCommonEdgeX(
			errors.KindEntityDoesNotExist,
			"no reading received for device "+deviceName,
			nil,
		)
	}
	res, resOk := devMap[resourceName]
	if !resOk {
		return Resource{}, errors.NewCommonEdgeX(
			errors.KindEntityDoesNotExist,
			"no reading received for resource "+resourceName,
			nil,
		)
	}
	return res, nil
}

// Snapshot 返回设备全部通道的副本
func (d *DB) Snapshot(deviceName string) map[string]Resource {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return maps.Clone(d.store[deviceName])
}

// DeleteDevice 删除整个设备及其所有资源
func (d *DB) DeleteDevice(deviceName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.store, deviceName)
}

// Close 清理底层存储
func (d *DB) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.store = nil
}
