package reflector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	require.Equal(t, "x/a", objectKey("x", "a"))
	// Cluster-scoped items keep the leading separator.
	require.Equal(t, "/node-1", objectKey("", "node-1"))
}

func TestCheckIdentity(t *testing.T) {
	tests := []struct {
		name    string
		uid     string
		rv      string
		objName string
		wantErr bool
	}{
		{name: "complete", objName: "a", uid: "u1", rv: "1"},
		{name: "missing name", objName: "", uid: "u1", rv: "1", wantErr: true},
		{name: "missing uid", objName: "a", uid: "", rv: "1", wantErr: true},
		{name: "missing resourceVersion", objName: "a", uid: "u1", rv: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkIdentity(configMap(tt.objName, "x", tt.uid, tt.rv))
			if tt.wantErr {
				var integrity *IntegrityError
				require.ErrorAs(t, err, &integrity)
				return
			}
			require.NoError(t, err)
		})
	}
}
