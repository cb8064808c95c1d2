package lua

var cmdRc = `
-- sorted globals that are neither builtins nor _private, optionally of one type
func _globals(kind)
    local out = {}
    for name, val in pairs(_G) do
        if _builtins[name] != true and name:sub(1, 1) != '_' and (kind == nil or type(val) == kind) then
            table.insert(out, name)
        end
    end
    table.sort(out)
    return out
end

func help()
    print 'Commands: ' .. table.concat(_globals('function'), ' ')
    print 'Registers are globals: r0-r15 sp pc pr gbr vbr mach macl sr'
end

func dir() return _globals() end

local _hook_types = {
    code = cpu.HOOK_CODE,
    block = cpu.HOOK_BLOCK,
    intr = cpu.HOOK_INTR,
    read = cpu.HOOK_MEM_READ,
    write = cpu.HOOK_MEM_WRITE,
}

func _on_hook(name, fn, start, stop)
    local type = _hook_types[name]
    if type == nil then
        print 'unknown hook type %s' % name
        return
    end
    if start == nil then
        hh = u.hook_add(type, fn)
    else
        if stop == nil then stop = start end
        hh = u.hook_add(type, fn, start, stop)
    end
    return hh
end

func off()
    if hh then
        u.hook_del(hh)
        hh = nil
    end
end

func read(addr, size)
    if size == nil then size = 16 end
    return u.mem_read(addr, size)
end

func where(addr)
    if addr == nil then addr = pc end
    print '0x%08x %s' % {addr, u.describe(addr)}
end

func write(addr, s)
    u.mem_write(addr, s)
end

func dis(addr, size, count)
    if addr == nil then addr = pc end
    if size == nil then size = 16 end
    for i, ins in ipairs(u.dis(addr, size)) do
        if count != nil and i > count then break end
        print '0x%08x: %-8s %s' % {ins.addr, ins.name, ins.op_str}
    end
end

func s(steps)
    u.step(steps)
    dis(pc, 2)
end

-- run frames of 'frame_cycles' until a hook stops the core
frame_cycles = 100000
func c(frames)
    if frames == nil then frames = 1 end
    for i in range(frames) do
        if u.run(frame_cycles) < frame_cycles then break end
    end
    dis(pc, 2)
end

func b(baddr)
    local bskip = nil
    local id = u.hook_add(cpu.HOOK_CODE, func()
        if bskip == baddr then
            bskip = nil
            return
        end
        bskip = baddr
        print 'Breakpoint hit at 0x%x' % baddr
        u.stop()
    end, baddr, baddr)
    print 'Breakpoint %d at 0x%x' % {id, baddr}
    return id
end

func irq(line, state)
    if state == nil then state = true end
    u.irq(line, state)
end

func nmi()
    u.irq(cpu.LINE_NMI, true)
    u.irq(cpu.LINE_NMI, false)
end

func regs()
    for i = 0, 15 do
        print 'r%-2d %08x' % {i, u.reg_read(i)}
    end
    for _, name in ipairs({'pc', 'pr', 'gbr', 'vbr', 'mach', 'macl', 'sr'}) do
        print '%-3s %08x' % {name, u.reg_read(name)}
    end
end
r = regs
`
