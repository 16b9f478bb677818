// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sampleconfig

// FileContents is a string containing the commented example config for
// rustsyncd.
const FileContents = `[Application Options]

; ------------------------------------------------------------------------------
; Data settings
; ------------------------------------------------------------------------------

; The directory to store data such as the block chain and the known peer
; registry.  The default is ~/.rustsyncd/data on POSIX OSes,
; $LOCALAPPDATA/Rustsyncd/data on Windows, and
; ~/Library/Application Support/Rustsyncd/data on macOS.  Environment variables
; are expanded so they may be used.  NOTE: Windows environment variables are
; typically %VARIABLE%, but they must be accessed with $VARIABLE here.
; datadir=~/.rustsyncd/data                            ; Unix
; datadir=$LOCALAPPDATA/Rustsyncd/data                 ; Windows
; datadir=~/Library/Application Support/Rustsyncd/data ; macOS

; The database backend used for the block store.  Supported values are
; leveldb and pebbledb.
; dbtype=leveldb


; ------------------------------------------------------------------------------
; Network settings
; ------------------------------------------------------------------------------

; Use simulation network.
; simnet=1

; Add as many listen addresses as desired.  The gossip server accepts block
; summary, range, announcement, and peer exchange requests on these interfaces.
; All interfaces are used when no address is specified.
; listen=0.0.0.0:7744
; listen=127.0.0.1:7744

; The address other nodes should use to reach this node.  Required when
; participating in announcement relay and peer exchange behind NAT or a
; non-default listen interface.
; externaladdr=203.0.113.7:7744

; Disable the gossip server.  The node still synchronizes from its configured
; peers but serves no requests of its own.
; nolisten=1

; Bootstrap peers to seed the registry with at startup.  May be specified
; multiple times.
; connect=192.0.2.10:7744
; connect=192.0.2.11:7744

; Connect through a SOCKS5 proxy.
; proxy=127.0.0.1:9050
; proxyuser=
; proxypass=


; ------------------------------------------------------------------------------
; Synchronization settings
; ------------------------------------------------------------------------------

; Seconds-precision durations accept Go duration strings such as 30s or 2m.

; The deadline applied to every remote request.
; peertimeout=5s

; How often a synchronization round is started.
; tickinterval=30s

; The number of active peers contacted each round.
; fanout=8

; The maximum number of blocks requested in a single range fetch.
; maxfetchspan=500

; The deepest fork the node will reorganize across.  Forks rooted further
; below the current tip than this are ignored.
; maxforkdepth=100

; The number of blocks a competing fork must lead by before a reorganization
; is attempted.  Zero adopts any strictly better fork.
; reconcilemargin=0

; How long a known peer may go without contact before it is considered stale
; and eventually forgotten.
; stalettl=5m


; ------------------------------------------------------------------------------
; Debug
; ------------------------------------------------------------------------------

; Debug logging level.
; Valid levels are {trace, debug, info, warn, error, critical}
; You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set
; log level for individual subsystems.  Use rustsyncd --debuglevel=show to list
; available subsystems.
; debuglevel=info

; The port used to listen for HTTP profile requests.
; profile=6061
`
