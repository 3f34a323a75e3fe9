package main

/*
#include <stddef.h>
#include <stdint.h>
#include <string.h>
*/
import "C"

import (
	"unsafe"

	"github.com/praetorian-inc/sieve/pkg/types"
)

// bytesOf views a C buffer as a Go slice without copying. A NULL pointer
// yields a nil slice. The slice must not outlive the call.
func bytesOf(p *C.uint8_t, n C.size_t) []byte {
	if p == nil {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), int(n))
}

// textOf views a NUL-terminated C string as a Go slice without copying.
func textOf(p *C.char) []byte {
	if p == nil {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), int(C.strlen(p)))
}

//export engine_load_route_rules
func engine_load_route_rules(route C.uint32_t, blob *C.uint8_t, n C.size_t) C.int32_t {
	return C.int32_t(process().loadRouteRules(uint32(route), bytesOf(blob, n)))
}

//export engine_clear_route_rules
func engine_clear_route_rules(route C.uint32_t) C.int32_t {
	return C.int32_t(process().clearRouteRules(uint32(route)))
}

//export engine_clear_all_rules
func engine_clear_all_rules() C.int32_t {
	return C.int32_t(process().clearAllRules())
}

//export engine_check_response_for_route
func engine_check_response_for_route(route C.uint32_t, text *C.char) C.int32_t {
	return C.int32_t(process().checkResponseForRoute(uint32(route), textOf(text)))
}

//export engine_load_rules
func engine_load_rules(blob *C.uint8_t, n C.size_t) C.int32_t {
	return C.int32_t(process().loadRouteRules(uint32(types.DefaultRoute), bytesOf(blob, n)))
}

//export engine_check_response
func engine_check_response(text *C.char) C.int32_t {
	return C.int32_t(process().checkResponseForRoute(uint32(types.DefaultRoute), textOf(text)))
}

//export engine_route_pattern_count
func engine_route_pattern_count(route C.uint32_t) C.int32_t {
	return C.int32_t(process().routePatternCount(uint32(route)))
}

//export engine_route_count
func engine_route_count() C.int32_t {
	return C.int32_t(process().routeCount())
}
