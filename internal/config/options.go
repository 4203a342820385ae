// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config defines the subnet manager's option set as one flat
// HCL-tagged struct, grounded on internal/config/config.go's
// hcl-tag-per-field pattern. Parsing and validation are our concern;
// HCL syntax itself is hashicorp/hcl/v2's.
package config

import "time"

// Options is the full, documented option set. The `live` struct tag
// marks fields config.Reload is permitted to change without a process
// restart; every other field requires a restart to take effect.
type Options struct {
	SweepIntervalSec uint32 `hcl:"sweep_interval,optional" live:"true"`

	MaxWireSMPs        uint32 `hcl:"max_wire_smps,optional" live:"true"`
	MaxWireSMPs2       uint32 `hcl:"max_wire_smps2,optional" live:"true"`
	MaxSMPsTimeoutMs   uint32 `hcl:"max_smps_timeout,optional" live:"true"`
	TransactionTimeoutMs uint32 `hcl:"transaction_timeout,optional" live:"true"`
	TransactionRetries int    `hcl:"transaction_retries,optional" live:"true"`

	SMPriority    uint8  `hcl:"sm_priority,optional" live:"true"`
	SMKey         uint64 `hcl:"sm_key,optional"`
	SMSL          uint8  `hcl:"sm_sl,optional" live:"true"`
	SubnetPrefix  uint64 `hcl:"subnet_prefix,optional"`
	MKey          uint64 `hcl:"m_key,optional"`
	MKeyLeasePeriodSec uint32 `hcl:"m_key_lease_period,optional" live:"true"`

	LMC           uint8 `hcl:"lmc,optional"`
	LMCESP0       bool  `hcl:"lmc_esp0,optional"`
	MaxOpVLs      uint8 `hcl:"max_op_vls,optional"`
	SubnetTimeout uint8 `hcl:"subnet_timeout,optional"`
	PacketLifeTime uint8 `hcl:"packet_life_time,optional"`

	ForceLinkSpeed    uint8 `hcl:"force_link_speed,optional"`
	ForceLinkSpeedExt uint8 `hcl:"force_link_speed_ext,optional"`
	FDR10             bool  `hcl:"fdr10,optional"`

	RoutingEngine string `hcl:"routing_engine,optional" live:"true"`
	NoFallback    bool   `hcl:"no_fallback,optional" live:"true"`

	RootGUIDFile          string `hcl:"root_guid_file,optional" live:"true"`
	CNGUIDFile            string `hcl:"cn_guid_file,optional" live:"true"`
	IOGUIDFile            string `hcl:"io_guid_file,optional" live:"true"`
	IDsGUIDFile           string `hcl:"ids_guid_file,optional" live:"true"`
	GUIDRoutingOrderFile  string `hcl:"guid_routing_order_file,optional" live:"true"`
	HopWeightsFile        string `hcl:"hop_weights_file,optional" live:"true"`
	PortSearchOrderingFile string `hcl:"port_search_ordering_file,optional" live:"true"`

	PartitionConfigFile  string `hcl:"partition_config_file,optional" live:"true"`
	NoPartitionEnforcement bool `hcl:"no_partition_enforcement,optional" live:"true"`

	QoS            bool  `hcl:"qos,optional"`
	QoSMaxVLs      uint8 `hcl:"qos_max_vls,optional"`
	QoSHighLimit   uint8 `hcl:"qos_high_limit,optional"`
	QoSVLArbHigh   string `hcl:"qos_vlarb_high,optional"`
	QoSVLArbLow    string `hcl:"qos_vlarb_low,optional"`
	QoSSL2VL       string `hcl:"qos_sl2vl,optional"`

	HonorGUID2LIDFile bool `hcl:"honor_guid2lid_file,optional"`
	GUID2LIDFile      string `hcl:"guid2lid_file,optional"`
	ReassignLIDs      bool `hcl:"reassign_lids,optional"`

	UseUcastCache bool   `hcl:"use_ucast_cache,optional" live:"true"`
	PortShifting  bool   `hcl:"port_shifting,optional"`
	ScatterPorts  uint32 `hcl:"scatter_ports,optional"`

	Console     string `hcl:"console,optional" live:"true"`
	ConsolePort uint16 `hcl:"console_port,optional"`

	ExitOnFatal   bool   `hcl:"exit_on_fatal,optional"`
	LogFile       string `hcl:"log_file,optional"`
	LogMaxSizeMB  int    `hcl:"log_max_size,optional" live:"true"`
	LogFlags      uint32 `hcl:"log_flags,optional" live:"true"`
	ForceLogFlush bool   `hcl:"force_log_flush,optional" live:"true"`
	AccumLogFile  bool   `hcl:"accum_log_file,optional"`
	LogPrefix     string `hcl:"log_prefix,optional" live:"true"`

	SMInfoPollingTimeoutMs uint32 `hcl:"sminfo_polling_timeout,optional" live:"true"`
	PollingRetryNumber     int    `hcl:"polling_retry_number,optional" live:"true"`
}

// Default returns the documented defaults.
func Default() *Options {
	return &Options{
		SweepIntervalSec:     10,
		MaxWireSMPs:          4,
		MaxWireSMPs2:         8,
		MaxSMPsTimeoutMs:     8000,
		TransactionTimeoutMs: 200,
		TransactionRetries:   3,
		SMPriority:           0,
		SMSL:                 0,
		MKeyLeasePeriodSec:   0,
		LMC:                  0,
		MaxOpVLs:             4,
		SubnetTimeout:        18,
		PacketLifeTime:       18,
		RoutingEngine:        "minhop",
		Console:              "off",
		ConsolePort:          10000,
		ExitOnFatal:          true,
		LogMaxSizeMB:         0,
		LogFlags:             0x13, // ERROR|INFO|SYS
		SMInfoPollingTimeoutMs: 1000,
		PollingRetryNumber:   4,
	}
}

func (o *Options) SweepInterval() time.Duration {
	return time.Duration(o.SweepIntervalSec) * time.Second
}

func (o *Options) TransactionTimeout() time.Duration {
	return time.Duration(o.TransactionTimeoutMs) * time.Millisecond
}

func (o *Options) MaxSMPsTimeout() time.Duration {
	return time.Duration(o.MaxSMPsTimeoutMs) * time.Millisecond
}

func (o *Options) SMInfoPollingTimeout() time.Duration {
	return time.Duration(o.SMInfoPollingTimeoutMs) * time.Millisecond
}

// RoutingEngines splits the comma-separated ordered engine list
// ("first engine that produces a valid LFT wins").
func (o *Options) RoutingEngines() []string {
	return splitCSV(o.RoutingEngine)
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, trimSpace(s[start:i]))
			}
			start = i + 1
		}
	}
	return out
}

func trimSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}
