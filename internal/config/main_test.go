package config

import (
	"os"
	"testing"
	"time"
)

func init() {
	defaultValues["_TEST_INT_VALUE"] = 10
	defaultValues["_TEST_STR_VALUE"] = "AAA"
	defaultValues["_TEST_BOOL_VALUE"] = false
	defaultValues["_TEST_DURATION_VALUE"] = 5 * time.Second
}

func TestTypedValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		env  string // empty means unset
		read func(string) interface{}
		want interface{}
	}{
		{"string default", "_TEST_STR_VALUE", "", func(k string) interface{} { return StringValue(k) }, "AAA"},
		{"string from env", "_TEST_STR_VALUE", "hello", func(k string) interface{} { return StringValue(k) }, "hello"},
		{"int default", "_TEST_INT_VALUE", "", func(k string) interface{} { return IntValue(k) }, 10},
		{"int from env", "_TEST_INT_VALUE", "20", func(k string) interface{} { return IntValue(k) }, 20},
		{"int not a number", "_TEST_INT_VALUE", ";", func(k string) interface{} { return IntValue(k) }, 10},
		{"bool default", "_TEST_BOOL_VALUE", "", func(k string) interface{} { return BoolValue(k) }, false},
		{"bool from env", "_TEST_BOOL_VALUE", "true", func(k string) interface{} { return BoolValue(k) }, true},
		{"bool not a bool", "_TEST_BOOL_VALUE", "hello", func(k string) interface{} { return BoolValue(k) }, false},
		{"duration default", "_TEST_DURATION_VALUE", "", func(k string) interface{} { return DurationValue(k) }, 5 * time.Second},
		{"duration from env", "_TEST_DURATION_VALUE", "250ms", func(k string) interface{} { return DurationValue(k) }, 250 * time.Millisecond},
		{"duration negative", "_TEST_DURATION_VALUE", "-1s", func(k string) interface{} { return DurationValue(k) }, 5 * time.Second},
		{"duration unparsable", "_TEST_DURATION_VALUE", "soon", func(k string) interface{} { return DurationValue(k) }, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env == "" {
				os.Unsetenv(tt.key)
			} else {
				t.Setenv(tt.key, tt.env)
			}
			if got := tt.read(tt.key); got != tt.want {
				t.Errorf("%s: got %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestGetEnvVarFallbackTypes(t *testing.T) {
	if got := getEnvVar("_TEST_UNSET_KEY", "fallback"); got != "fallback" {
		t.Errorf("unset key should use fallback, got %v", got)
	}

	t.Setenv("_TEST_INT_NEW", "32")
	if got := getEnvVar("_TEST_INT_NEW", 1); got != 32 {
		t.Errorf("int env, got %v", got)
	}

	// only the types in defaultValues are converted
	t.Setenv("_TEST_FLOAT_NEW", "2.2")
	if got := getEnvVar("_TEST_FLOAT_NEW", 1.1); got != 1.1 {
		t.Errorf("float env should use fallback, got %v", got)
	}
}

func TestUnknownKeys(t *testing.T) {
	if StringValue("_NOT_A_KEY") != "" || IntValue("_NOT_A_KEY") != 0 ||
		BoolValue("_NOT_A_KEY") || DurationValue("_NOT_A_KEY") != 0 {
		t.Error("unknown keys should return zero values")
	}
}

func TestDefaults(t *testing.T) {
	os.Unsetenv("HEALTH_EVENT_CAPACITY")
	os.Unsetenv("HEALTH_METRIC_CAPACITY")
	os.Unsetenv("HEALTH_PROBE_TIMEOUT")
	if IntValue("HEALTH_EVENT_CAPACITY") != 1000 {
		t.Errorf("event capacity default, got %d", IntValue("HEALTH_EVENT_CAPACITY"))
	}
	if IntValue("HEALTH_METRIC_CAPACITY") != 500 {
		t.Errorf("metric capacity default, got %d", IntValue("HEALTH_METRIC_CAPACITY"))
	}
	if DurationValue("HEALTH_PROBE_TIMEOUT") != 5*time.Second {
		t.Errorf("probe timeout default, got %v", DurationValue("HEALTH_PROBE_TIMEOUT"))
	}
}
