package state

import "routevault/native/dex"

var (
	escrowAuthorityKey = []byte("escrow/authority")
	escrowVaultPrefix  = []byte("escrow/vault/")
	registryKey        = []byte("registry/config")
	registryPoolPrefix = []byte("registry/pool/")
	managerKey         = []byte("registry/manager")
	orderPrefix        = []byte("limitorder/order/")
	balancePrefix      = []byte("ledger/balance/")
)

func escrowVaultKey(addr [20]byte) []byte {
	buf := make([]byte, len(escrowVaultPrefix)+len(addr))
	copy(buf, escrowVaultPrefix)
	copy(buf[len(escrowVaultPrefix):], addr[:])
	return buf
}

func registryPoolKey(swapType dex.SwapType, addr [20]byte) []byte {
	buf := make([]byte, len(registryPoolPrefix)+1+len(addr))
	copy(buf, registryPoolPrefix)
	buf[len(registryPoolPrefix)] = byte(swapType)
	copy(buf[len(registryPoolPrefix)+1:], addr[:])
	return buf
}

func orderKey(addr [20]byte) []byte {
	buf := make([]byte, len(orderPrefix)+len(addr))
	copy(buf, orderPrefix)
	copy(buf[len(orderPrefix):], addr[:])
	return buf
}

func balanceKey(account, mint [20]byte) []byte {
	buf := make([]byte, len(balancePrefix)+len(account)+len(mint))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], account[:])
	copy(buf[len(balancePrefix)+len(account):], mint[:])
	return buf
}
