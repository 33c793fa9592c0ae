// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019-2023 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package driver provides an implementation of a ProtocolDriver interface
// that exposes RFM12 nodes as EdgeX devices.
package driver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/edgexfoundry/device-sdk-go/v4/pkg/interfaces"
	dsModels "github.com/edgexfoundry/device-sdk-go/v4/pkg/models"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/models"

	"github.com/linjuya-lu/device_rfm12_go/internal/command"
	"github.com/linjuya-lu/device_rfm12_go/internal/nodes"
)

const (
	// SourceName 异步上报使用的设备命令名
	SourceName = "readings"
	// GatewayConfigKey DriverConfigs 中网关配置文件路径的键
	GatewayConfigKey = "GatewayConfig"
	// CommandAttribute 写资源上标识目标命令的属性名
	CommandAttribute = "command"
	// ArgumentAttribute 写资源上标识参数名的属性名，缺省为资源名
	ArgumentAttribute = "argument"

	writeTimeout = 5 * time.Second
)

// CommandSubmitter queues a command for the serial port and waits for it.
type CommandSubmitter interface {
	Submit(ctx context.Context, req command.Request) error
}

type Rfm12Driver struct {
	lc      logger.LoggingClient
	asyncCh chan<- *dsModels.AsyncValues
	locker  sync.Mutex
	sdk     interfaces.DeviceServiceSDK

	db      *DB
	devices map[string]*nodes.Definition // EdgeX 设备名 → 节点
	submit  CommandSubmitter
	rt      *runtime
}

var once sync.Once
var driver *Rfm12Driver

func NewRfm12Driver() interfaces.ProtocolDriver {
	once.Do(func() {
		driver = &Rfm12Driver{db: NewDB()}
	})
	return driver
}

// DeviceName maps a node name to an EdgeX device name:
// "/home/electricity" -> "home-electricity".
func DeviceName(node string) string {
	return strings.ReplaceAll(strings.Trim(node, "/"), "/", "-")
}

func (d *Rfm12Driver) Initialize(sdk interfaces.DeviceServiceSDK) error {
	d.sdk = sdk
	d.lc = sdk.LoggingClient()
	d.asyncCh = sdk.AsyncValuesChannel()
	d.db.Init()

	rt, err := newRuntime(sdk.DriverConfigs()[GatewayConfigKey], d.sink())
	if err != nil {
		return fmt.Errorf("failed to init rfm12 gateway: %w", err)
	}
	d.rt = rt
	d.bind(rt.registry, rt.gateway)
	d.lc.Infof("loaded %d RFM12 node definitions", rt.registry.Len())
	return nil
}

// bind 建立设备名映射并设置命令下发通道
func (d *Rfm12Driver) bind(reg *nodes.Registry, submit CommandSubmitter) {
	d.devices = make(map[string]*nodes.Definition, reg.Len())
	for _, def := range reg.Definitions() {
		d.devices[DeviceName(def.Name)] = def
	}
	d.submit = submit
}

func (d *Rfm12Driver) sink() *asyncSink {
	return &asyncSink{db: d.db, ch: d.asyncCh}
}

func (d *Rfm12Driver) Start() error {
	if d.rt != nil {
		if err := d.rt.start(); err != nil {
			return err
		}
	}
	d.lc.Infof("RFM12 串口网关已启动")
	return nil
}

func (d *Rfm12Driver) HandleReadCommands(deviceName string, protocols map[string]models.ProtocolProperties, reqs []dsModels.CommandRequest) (res []*dsModels.CommandValue, err error) {
	d.locker.Lock()
	defer d.locker.Unlock()

	res = make([]*dsModels.CommandValue, len(reqs))
	for i, req := range reqs {
		r, err := d.db.GetResource(deviceName, req.DeviceResourceName)
		if err != nil {
			return nil, err
		}
		cv, err := commandValue(r, req.DeviceResourceName, req.Type)
		if err != nil {
			return nil, errors.NewCommonEdgeX(errors.KindContractInvalid, "read "+deviceName, err)
		}
		res[i] = cv
		d.lc.Debugf("读取值: %s.%s = %v", deviceName, req.DeviceResourceName, r.Value)
	}
	return res, nil
}

// HandleWriteCommands 把一次写请求组装成一条节点命令：
// 命令名取自资源属性 "command"，参数名取自 "argument" 或资源名
func (d *Rfm12Driver) HandleWriteCommands(deviceName string, protocols map[string]models.ProtocolProperties, reqs []dsModels.CommandRequest,
	params []*dsModels.CommandValue) error {
	d.locker.Lock()
	defer d.locker.Unlock()

	req, err := d.commandRequest(deviceName, reqs, params)
	if err != nil {
		return err
	}
	if d.submit == nil {
		return errors.NewCommonEdgeX(errors.KindServiceUnavailable, "gateway not running", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := d.submit.Submit(ctx, req); err != nil {
		return errors.NewCommonEdgeX(errors.KindServerError,
			fmt.Sprintf("send %s to %s failed", req.Command, req.Node), err)
	}
	d.lc.Infof("写入命令: %s.%s %v", deviceName, req.Command, req.Args)
	return nil
}

func (d *Rfm12Driver) commandRequest(deviceName string, reqs []dsModels.CommandRequest, params []*dsModels.CommandValue) (command.Request, error) {
	def, ok := d.devices[deviceName]
	if !ok {
		return command.Request{}, errors.NewCommonEdgeX(errors.KindEntityDoesNotExist,
			"no RFM12 node for device "+deviceName, nil)
	}
	if len(reqs) != len(params) {
		return command.Request{}, errors.NewCommonEdgeX(errors.KindContractInvalid,
			fmt.Sprintf("%d requests but %d parameters", len(reqs), len(params)), nil)
	}

	req := command.Request{Node: def.Name, Args: make(map[string]float64, len(params))}
	for i, r := range reqs {
		if name, ok := r.Attributes[CommandAttribute].(string); ok && name != "" {
			if req.Command != "" && req.Command != name {
				return command.Request{}, errors.NewCommonEdgeX(errors.KindContractInvalid,
					fmt.Sprintf("resources address commands %q and %q", req.Command, name), nil)
			}
			req.Command = name
		}
		arg := r.DeviceResourceName
		if a, ok := r.Attributes[ArgumentAttribute].(string); ok && a != "" {
			arg = a
		}
		v, err := paramFloat(params[i])
		if err != nil {
			return command.Request{}, errors.NewCommonEdgeX(errors.KindContractInvalid, "write "+deviceName, err)
		}
		req.Args[arg] = v
	}
	if req.Command == "" {
		return command.Request{}, errors.NewCommonEdgeX(errors.KindContractInvalid,
			fmt.Sprintf("no %q attribute on write resources of %s", CommandAttribute, deviceName), nil)
	}
	return req, nil
}

func (d *Rfm12Driver) Stop(force bool) error {
	d.lc.Info("Rfm12Driver.Stop: device-rfm12 driver is stopping...")
	if d.rt != nil {
		d.rt.stop()
	}
	d.db.Close()
	return nil
}

func (d *Rfm12Driver) AddDevice(deviceName string, protocols map[string]models.ProtocolProperties, adminState models.AdminState) error {
	if _, ok := d.devices[deviceName]; !ok {
		d.lc.Warnf("device %s has no RFM12 node definition", deviceName)
	}
	d.lc.Debugf("a new Device is added: %s", deviceName)
	return nil
}

func (d *Rfm12Driver) UpdateDevice(deviceName string, protocols map[string]models.ProtocolProperties, adminState models.AdminState) error {
	d.lc.Debugf("Device %s is updated", deviceName)
	return nil
}

func (d *Rfm12Driver) RemoveDevice(deviceName string, protocols map[string]models.ProtocolProperties) error {
	d.db.DeleteDevice(deviceName)
	d.lc.Debugf("Device %s is removed", deviceName)
	return nil
}

func (d *Rfm12Driver) Discover() error {
	return fmt.Errorf("driver's Discover function isn't implemented")
}

// ValidateDevice 设备名必须对应已加载的节点
func (d *Rfm12Driver) ValidateDevice(device models.Device) error {
	if _, ok := d.devices[device.Name]; !ok {
		return errors.NewCommonEdgeX(errors.KindContractInvalid,
			"no RFM12 node for device "+device.Name, nil)
	}
	return nil
}

// asyncSink 缓存最新读数并通过 SDK 异步通道上报
type asyncSink struct {
	db *DB
	ch chan<- *dsModels.AsyncValues
}

func (s *asyncSink) Deliver(r nodes.Reading) error {
	device := DeviceName(r.Node.Name)
	origin := r.At.UnixNano()
	s.db.Update(device, r.Values, origin)

	cvs := make([]*dsModels.CommandValue, 0, len(r.Values))
	for _, name := range r.Node.ChannelNames() {
		v, ok := r.Values[name]
		if !ok {
			continue
		}
		cv, err := commandValue(Resource{Name: name, Value: v, Origin: origin}, name, "")
		if err != nil {
			return err
		}
		cvs = append(cvs, cv)
	}
	if s.ch == nil || len(cvs) == 0 {
		return nil
	}
	s.ch <- &dsModels.AsyncValues{
		DeviceName:    device,
		SourceName:    SourceName,
		CommandValues: cvs,
	}
	return nil
}
