// SPDX-License-Identifier: Apache-2.0

//go:build cgo

package gssapi

/*
#include <stdlib.h>
#include <gssapi/gssapi.h>
#include <gssapi/gssapi_ext.h>

OM_uint32 acquire_keytab_cred(OM_uint32 *minor, const char *keytab, gss_cred_id_t *cred) {
	gss_key_value_element_desc element = { "keytab", keytab };
	gss_key_value_set_desc store = { 1, &element };

	return gss_acquire_cred_from(minor, GSS_C_NO_NAME, GSS_C_INDEFINITE, GSS_C_NO_OID_SET, GSS_C_ACCEPT,
		&store, cred, NULL, NULL);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/golang-auth/go-gssapi-acceptor"
)

// Credential is an acceptor credential held by the library.
type Credential struct {
	id C.gss_cred_id_t
}

// AcquireKeytabCredential acquires an acceptor credential for any service principal in
// the keytab file.
func AcquireKeytabCredential(keytab string) (*Credential, error) {
	cKeytab := C.CString(keytab)
	defer C.free(unsafe.Pointer(cKeytab))

	var minor C.OM_uint32
	var cCredId C.gss_cred_id_t
	major := C.acquire_keytab_cred(&minor, cKeytab, &cCredId)
	if major != 0 {
		status := makeStatus(major, minor)
		return nil, fmt.Errorf("acquiring acceptor credential from %s: %w: %v", keytab, status.Err(), minorMessages(minor, acceptor.MechKRB5))
	}

	return &Credential{id: cCredId}, nil
}

// Release frees the credential.  It is safe to call more than once.
func (c *Credential) Release() error {
	if c.id == nil {
		return nil
	}

	var minor C.OM_uint32
	major := C.gss_release_cred(&minor, &c.id)
	c.id = nil

	return makeStatus(major, minor).Err()
}
