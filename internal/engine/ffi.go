//go:build easytier && cgo

package engine

/*
#cgo LDFLAGS: -leasytier_ffi
#include <stdlib.h>
#include <stddef.h>

typedef struct KeyValuePair {
	const char *key;
	const char *value;
} KeyValuePair;

extern int set_tun_fd(const char *inst_name, int fd);
extern void get_error_msg(const char **out);
extern void free_string(const char *s);
extern int parse_config(const char *cfg_str);
extern int run_network_instance(const char *cfg_str);
extern int retain_network_instance(const char **inst_names, size_t length);
extern int collect_network_infos(KeyValuePair *infos, size_t max_length);
*/
import "C"

import (
	"encoding/json"
	"sync"
	"unsafe"

	coreerrors "lanlink-core/internal/core/errors"
)

// maxInstances collect_network_infos 一次最多返回的实例数
const maxInstances = 16

// ffiEngine 通过 cgo 调用 easytier_ffi
// 本地库的错误信息是全局的，调用串行化以保证 LastError 对应最近一次调用
type ffiEngine struct {
	mu sync.Mutex
}

var defaultFFI = &ffiEngine{}

// Default 返回当前构建可用的引擎
func Default() Engine {
	return defaultFFI
}

func (e *ffiEngine) Available() bool   { return true }
func (e *ffiEngine) LoadError() string { return "" }

func (e *ffiEngine) LastError() string {
	var msg *C.char
	C.get_error_msg(&msg)
	if msg == nil {
		return ""
	}
	defer C.free_string(msg)
	return C.GoString(msg)
}

func (e *ffiEngine) ParseConfig(cfg string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cs := C.CString(cfg)
	defer C.free(unsafe.Pointer(cs))
	if rc := C.parse_config(cs); rc != 0 {
		return callError(e, coreerrors.CodeConfigRejected, "parse_config", "config rejected")
	}
	return nil
}

func (e *ffiEngine) RunNetworkInstance(cfg string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cs := C.CString(cfg)
	defer C.free(unsafe.Pointer(cs))
	if rc := C.run_network_instance(cs); rc != 0 {
		return callError(e, coreerrors.CodeStartFailed, "run_network_instance", "failed to start instance")
	}
	return nil
}

// CollectNetworkInfos 把 key/value 对组装成 {"map": {name: info}}
func (e *ffiEngine) CollectNetworkInfos() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var pairs [maxInstances]C.KeyValuePair
	n := int(C.collect_network_infos(&pairs[0], C.size_t(maxInstances)))
	if n < 0 {
		return "", callError(e, coreerrors.CodeInternal, "collect_network_infos", "collect failed")
	}

	infos := make(map[string]json.RawMessage, n)
	for i := 0; i < n && i < maxInstances; i++ {
		key := C.GoString(pairs[i].key)
		value := C.GoString(pairs[i].value)
		C.free_string(pairs[i].key)
		C.free_string(pairs[i].value)
		if !json.Valid([]byte(value)) {
			continue
		}
		infos[key] = json.RawMessage(value)
	}

	blob, err := json.Marshal(map[string]interface{}{"map": infos})
	if err != nil {
		return "", coreerrors.Wrap(err, coreerrors.CodeInternal, "encode network infos")
	}
	return string(blob), nil
}

// StopAllInstances 保留空列表即停止全部实例
func (e *ffiEngine) StopAllInstances() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if rc := C.retain_network_instance(nil, 0); rc != 0 {
		return callError(e, coreerrors.CodeStopFailed, "retain_network_instance", "failed to stop instances")
	}
	return nil
}

func (e *ffiEngine) SetTunFd(instanceName string, fd int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cs := C.CString(instanceName)
	defer C.free(unsafe.Pointer(cs))
	if rc := C.set_tun_fd(cs, C.int(fd)); rc != 0 {
		return callError(e, coreerrors.CodeTunError, "set_tun_fd", "failed to bind tun fd")
	}
	return nil
}
