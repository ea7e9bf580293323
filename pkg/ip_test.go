package pkg

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIPIsLocal(t *testing.T) {
	cases := []struct {
		addr            string
		expectedIsLocal bool
	}{
		{addr: "83.12.53.65:2145", expectedIsLocal: false},
		{addr: "127.23.0.1:35325", expectedIsLocal: false},
		{addr: "172.20.0.1:60102", expectedIsLocal: true},
		{addr: "172.20.0.1:60096", expectedIsLocal: true},
		{addr: "172.200.0.1:60096", expectedIsLocal: true},
		{addr: "172.19.0.1:42452", expectedIsLocal: true},
		{addr: "172.0.0.1:42452", expectedIsLocal: true},
		{addr: "83.12.53.65:214", expectedIsLocal: false},
		{addr: "172.19.0.1:42452", expectedIsLocal: true},
		{addr: "172.0.0.1:352345", expectedIsLocal: true},
		{addr: "111.12.56.65:8080", expectedIsLocal: false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.expectedIsLocal, IPIsLocal(tc.addr))
	}
}

func TestReadUserIP(t *testing.T) {
	cases := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expectedIP string
		expectErr  bool
	}{
		{name: "remote addr", remoteAddr: "83.12.53.65:2145", expectedIP: "83.12.53.65"},
		{name: "local", remoteAddr: "127.0.0.1:50312", expectedIP: "localhost"},
		{name: "docker", remoteAddr: "172.20.0.1:60102", expectedIP: "localhost"},
		{name: "real ip header", remoteAddr: "10.0.0.2:80", headers: map[string]string{"X-Real-Ip": "91.4.22.7"}, expectedIP: "91.4.22.7"},
		{name: "forwarded chain", remoteAddr: "10.0.0.2:80", headers: map[string]string{"X-Forwarded-For": "91.4.22.8, 10.0.0.1"}, expectedIP: "91.4.22.8"},
		{name: "ipv6", remoteAddr: "[2001:db8::1]:443", expectedIP: "2001:db8::1"},
		{name: "garbage", remoteAddr: "not-an-ip", expectErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/activity/metrics", nil)
			req.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			ip, err := ReadUserIP(req)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expectedIP, ip)
		})
	}
}
