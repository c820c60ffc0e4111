// Package config loads element configurations written in CUE.
//
// An element configuration describes how one UI element is tracked:
//
//	element: banner: {
//		modes: ["view", "time"]
//		payload: {
//			evt: "1001"
//			evt_params: uicode: "banner"
//			action_params: slot: 2
//		}
//	}
//
// Every element is unified with an embedded schema that supplies defaults
// (can_dig_send true, modes ["normal"], observer threshold 1.0 and root
// margin "0px"). Values are converted to the ir value model; floats are
// rejected everywhere except the observer threshold.
package config
